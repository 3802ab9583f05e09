package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/callslot/callslot/libs/grpcx"
	"github.com/callslot/callslot/services/availability-service/internal/availability"
	"github.com/callslot/callslot/services/availability-service/internal/grpcserver"
)

func startGrpcServer(ctx context.Context, logger *slog.Logger, cfg serviceConfig, engine *availability.Engine) error {
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return err
	}

	srv := grpcx.NewServer(logger)
	health := grpcserver.Register(srv, engine, logger, cfg.RequireOffset)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		health.Shutdown()
		srv.GracefulStop()
	}()

	return nil
}

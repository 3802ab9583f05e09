package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/callslot/callslot/libs/grpcx"
	"github.com/callslot/callslot/libs/kafkax"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"google.golang.org/protobuf/types/known/structpb"
)

const getAvailabilityMethod = "/availability.v1.AvailabilityService/GetAvailability"

func main() {
	var (
		mode     = flag.String("mode", getenv("PROBE_MODE", "http"), "http, grpc or invalidate")
		baseURL  = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "availability http base url")
		grpcAddr = flag.String("grpc-addr", getenv("GRPC_ADDR", "localhost:9090"), "availability grpc address")
		brokers  = flag.String("brokers", getenv("KAFKA_BROKERS", "localhost:9092"), "kafka brokers for -mode invalidate")
		username = flag.String("user", getenv("PROBE_USER", ""), "user handle")
		userID   = flag.String("user-id", getenv("PROBE_USER_ID", ""), "user id for interval invalidation")
		date     = flag.String("date", getenv("PROBE_DATE", time.Now().Format("2006-01-02")), "date (YYYY-MM-DD)")
		offset   = flag.String("offset", getenv("PROBE_TIMEZONE_OFFSET", ""), "client offset in minutes east of UTC")
		weekDay  = flag.Int("week-day", -1, "weekday to invalidate (0=Sunday); -1 for all")
		timeout  = flag.Duration("timeout", 5*time.Second, "request timeout")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "http":
		requireUser(*username)
		probeHTTP(ctx, *baseURL, *username, *date, *offset)
	case "grpc":
		requireUser(*username)
		probeGRPC(ctx, *grpcAddr, *username, *date, *offset)
	case "invalidate":
		publishInvalidation(ctx, *brokers, *username, *userID, *weekDay)
	default:
		fatal("unknown -mode " + *mode)
	}
}

func probeHTTP(ctx context.Context, baseURL, username, date, offset string) {
	q := url.Values{"date": {date}}
	if offset != "" {
		q.Set("timezoneOffset", offset)
	}
	target := strings.TrimRight(baseURL, "/") + "/api/v1/users/" + url.PathEscape(username) + "/availability?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		fatal(err.Error())
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("status=%d request_id=%s\n%s\n", resp.StatusCode, resp.Header.Get("X-Request-Id"), strings.TrimSpace(string(body)))
}

func probeGRPC(ctx context.Context, addr, username, date, offset string) {
	fields := map[string]any{"username": username, "date": date}
	if offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil {
			fatal("offset must be an integer")
		}
		fields["timezone_offset_minutes"] = n
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		fatal(err.Error())
	}

	conn, err := grpcx.Dial(addr, grpcx.DialOptions{})
	if err != nil {
		fatal(err.Error())
	}
	defer conn.Close()

	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, getAvailabilityMethod, req, out); err != nil {
		fatal(err.Error())
	}
	pretty, _ := json.Marshal(out.AsMap())
	fmt.Println(string(pretty))
}

// publishInvalidation emits the change event the service listens to, for exercising the cache path.
func publishInvalidation(ctx context.Context, brokers, username, userID string, weekDay int) {
	topic := "users.profile.updated.v1"
	payload := map[string]any{"user_id": userID, "username": username}
	if userID != "" {
		topic = "users.time_intervals.updated.v1"
		if weekDay >= 0 {
			payload["week_day"] = weekDay
		}
	} else if username == "" {
		fatal("-user or -user-id is required")
	}

	value, err := json.Marshal(payload)
	if err != nil {
		fatal(err.Error())
	}
	eventID := uuid.NewString()
	headers := kafkax.MetaHeaders(kafkax.EventMeta{EventID: eventID, EventType: topic})

	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  kafkax.SplitBrokers(brokers),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
	defer w.Close()

	if err := w.WriteMessages(ctx, kafka.Message{
		Key:     []byte(eventID),
		Value:   value,
		Headers: kafkax.InjectTraceHeaders(ctx, headers),
	}); err != nil {
		fatal(err.Error())
	}
	fmt.Printf("published topic=%s event_id=%s\n", topic, eventID)
}

func requireUser(username string) {
	if strings.TrimSpace(username) == "" {
		fatal("PROBE_USER is required")
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}

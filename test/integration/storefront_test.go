package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/travel-storefront/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/travel-storefront/internal/adapters/mongo"
	"github.com/robertarktes/travel-storefront/internal/adapters/rabbit"
	redisadapter "github.com/robertarktes/travel-storefront/internal/adapters/redis"
	"github.com/robertarktes/travel-storefront/internal/auth"
	"github.com/robertarktes/travel-storefront/internal/booking"
	"github.com/robertarktes/travel-storefront/internal/catalog"
	"github.com/robertarktes/travel-storefront/internal/config"
	"github.com/robertarktes/travel-storefront/internal/contact"
	"github.com/robertarktes/travel-storefront/internal/domain"
	httphandler "github.com/robertarktes/travel-storefront/internal/http"
	"github.com/robertarktes/travel-storefront/internal/idempotency"
	"github.com/robertarktes/travel-storefront/internal/notify"
	"github.com/robertarktes/travel-storefront/internal/observability"
	"github.com/robertarktes/travel-storefront/internal/outbox"
	"github.com/robertarktes/travel-storefront/internal/payment"
	"github.com/robertarktes/travel-storefront/internal/rateLimit"
	"github.com/robertarktes/travel-storefront/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/gomail.v2"
)

// sandboxGateway issues order ids locally and accepts the signature "ok".
type sandboxGateway struct {
	mu sync.Mutex
	n  int
}

func (g *sandboxGateway) KeyID() string { return "rzp_test_sandbox" }

func (g *sandboxGateway) CreateOrder(_ context.Context, req payment.OrderRequest) (payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return payment.Order{ID: fmt.Sprintf("order_it_%d", g.n), Amount: req.Amount, Currency: req.Currency, Status: "created"}, nil
}

func (g *sandboxGateway) VerifyCheckout(_, _, signature string) bool { return signature == "ok" }

func (g *sandboxGateway) VerifyWebhook(_ []byte, signature string) bool { return signature == "ok" }

type capturedMail struct {
	mu   sync.Mutex
	sent []*gomail.Message
}

func (c *capturedMail) DialAndSend(m ...*gomail.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, m...)
	return nil
}

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) string {
	t.Helper()
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	if err != nil {
		t.Fatal(err)
	}
	return host + ":" + mapped.Port()
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestIntegration_BookAndNotify(t *testing.T) {
	if testing.Short() {
		t.Skip("container tests skipped in short mode")
	}
	ctx := context.Background()

	crdbAddr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "cockroachdb/cockroach:v24.1.1",
		Cmd:          []string{"start-single-node", "--insecure"},
		ExposedPorts: []string{"26257/tcp", "8080/tcp"},
		WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
	}, "26257")
	mongoAddr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	}, "27017")
	redisAddr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}, "6379")
	rabbitAddr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13-management",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForLog("Server startup complete"),
	}, "5672")

	cfg := &config.Config{
		CRDBDSN:         "postgresql://root@" + crdbAddr + "/defaultdb?sslmode=disable",
		MongoURI:        "mongodb://" + mongoAddr,
		MongoDB:         "storefront_it",
		RedisAddr:       redisAddr,
		RabbitURL:       "amqp://guest:guest@" + rabbitAddr + "/",
		JWTSecret:       "integration-secret",
		TokenTTL:        time.Hour,
		Currency:        "INR",
		BaseRate:        2000,
		FlowTTL:         time.Hour,
		CatalogCacheTTL: time.Minute,
		RateLimit:       "1000-M",
	}
	logger := observability.NewNopLogger()

	pool, err := pgxpool.New(ctx, cfg.CRDBDSN)
	require.NoError(t, err)
	defer pool.Close()
	crdbRepo := crdb.NewRepository(pool)
	require.NoError(t, crdbRepo.Migrate(ctx))

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	require.NoError(t, err)
	defer mongoClient.Disconnect(ctx)
	mongoDB := mongoClient.Database(cfg.MongoDB)
	catalogRepo := mongoadapter.NewCatalogRepository(mongoDB, logger)
	bookingRepo := mongoadapter.NewBookingRepository(mongoDB)
	require.NoError(t, bookingRepo.EnsureIndexes(ctx))
	require.NoError(t, catalogRepo.UpsertDestination(ctx, domain.Destination{
		ID: "goa", Name: "Goa", Country: "India", Price: 2500, Currency: "INR", IsFeatured: true,
	}))

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	rl, err := rateLimit.NewRedisRateLimiter(redisClient, cfg.RateLimit)
	require.NoError(t, err)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), time.Hour)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	require.NoError(t, err)
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	require.NoError(t, err)
	defer rabbitPub.Close()
	consumer, err := rabbit.NewConsumer(rabbitConn, "storefront.it."+uuid.NewString()[:8], domain.EventBookingConfirmed)
	require.NoError(t, err)
	defer consumer.Close()

	catalogSvc := catalog.NewService(catalogRepo, redisadapter.NewCache(redisClient), cfg.CatalogCacheTTL, logger)
	state := &session.State{
		Config:  cfg,
		Logger:  logger,
		Catalog: catalogSvc,
		Bookings: booking.NewService(redisadapter.NewFlows(redisClient), catalogSvc, &sandboxGateway{}, crdbRepo, bookingRepo,
			mongoadapter.NewAuditLogger(mongoDB, logger), logger,
			booking.Options{BaseRate: cfg.BaseRate, Currency: cfg.Currency, FlowTTL: cfg.FlowTTL}),
		Auth:        auth.NewService(crdbRepo, redisadapter.NewRevocations(redisClient), cfg.JWTSecret, cfg.TokenTTL),
		Contact:     contact.NewService(mongoadapter.NewContactRepository(mongoDB), rabbitPub, logger),
		Preferences: session.NewPreferences(redisadapter.NewPreferences(redisClient)),
	}
	h := httphandler.NewHandlers(state, map[string]httphandler.ReadinessCheck{"crdb": pool.Ping})
	srv := httptest.NewServer(httphandler.SetupRouter(h, state, rl, idemp))
	defer srv.Close()

	resp, home := call(t, srv, http.MethodGet, "/v1/home", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, home["featured_destinations"], 1)

	resp, body := call(t, srv, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"email": "meera@example.com", "password": "travel1", "confirm_password": "travel1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token := body["token"].(string)

	resp, body = call(t, srv, http.MethodPost, "/v1/flows", "", map[string]string{"kind": "destination", "id": "goa"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	flowPath := "/v1/flows/" + body["id"].(string)

	resp, _ = call(t, srv, http.MethodPut, flowPath+"/travelers", "", map[string]interface{}{
		"adults": 2, "children": 2, "rooms": 1, "date": "2026-12-24",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = call(t, srv, http.MethodPost, flowPath+"/proceed", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = call(t, srv, http.MethodPost, flowPath+"/payment-info", token, map[string]string{
		"name": "Meera", "email": "meera@example.com", "phone": "9812345678", "method": "card",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, checkout := call(t, srv, http.MethodPost, flowPath+"/payment", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 750000, checkout["amount"])

	resp, conf := call(t, srv, http.MethodPost, flowPath+"/payment/callback", token, map[string]string{
		"razorpay_payment_id": "pay_it_1", "razorpay_order_id": checkout["order_id"].(string), "razorpay_signature": "ok",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bookingID := conf["booking_id"].(string)

	stored, err := bookingRepo.GetBooking(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, "pay_it_1", stored.PaymentID)
	assert.Equal(t, 7500.0, stored.TotalPrice)

	n, err := outbox.NewPublisher(crdbRepo, rabbitPub, logger).PublishBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	consumeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	deliveries, err := consumer.Consume(consumeCtx)
	require.NoError(t, err)

	mail := &capturedMail{}
	notifier := notify.NewNotifier(mail, "bookings@storefront.test", "", logger)
	select {
	case d := <-deliveries:
		assert.Equal(t, "booking.confirmed:"+bookingID, d.MessageId)
		require.NoError(t, notifier.Handle(d.RoutingKey, d.Body))
		require.NoError(t, d.Ack(false))
	case <-consumeCtx.Done():
		t.Fatal("booking.confirmed was not delivered")
	}
	require.Len(t, mail.sent, 1)
	assert.Equal(t, []string{"meera@example.com"}, mail.sent[0].GetHeader("To"))

	n, err = outbox.NewPublisher(crdbRepo, rabbitPub, logger).PublishBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "outbox rows are published once")
}

package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	orderx "github.com/tanpawarit/support-triage-agent/agent/order"
	statex "github.com/tanpawarit/support-triage-agent/agent/state"
	configx "github.com/tanpawarit/support-triage-agent/pkg/config"
)

func writeOrders(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.json")
	data := `[
  {"order_id":"ORD-1001","customer_name":"Ana Ruiz","email":"ana@example.com","item":"Blender","status":"shipped"},
  {"order_id":"ORD-1002","customer_name":"Ben Ode","email":"ben@example.com","item":"Kettle","status":"delivered"}
]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		ordersSearchEmail, ordersSearchText = "", ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestOrdersGetCommand(t *testing.T) {
	t.Setenv("TRIAGE_ORDERS_PATH", writeOrders(t))

	out, err := runCommand(t, "orders", "get", "ord 1002")
	require.NoError(t, err)

	var rec orderx.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "ORD-1002", rec.OrderID)
	assert.Equal(t, "Kettle", rec.Item)
}

func TestOrdersGetCommandMissing(t *testing.T) {
	t.Setenv("TRIAGE_ORDERS_PATH", writeOrders(t))

	_, err := runCommand(t, "orders", "get", "ORD-9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORD9 not found")
}

func TestEnvFlagReconfiguresLogger(t *testing.T) {
	t.Setenv("TRIAGE_ORDERS_PATH", writeOrders(t))
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=warn\n"), 0o600))

	prev, prevCtx := log.Logger, zerolog.DefaultContextLogger
	t.Cleanup(func() {
		log.Logger, zerolog.DefaultContextLogger = prev, prevCtx
		envFile = ""
		configx.SetEnvFile("")
	})

	_, err := runCommand(t, "--env", path, "orders", "get", "ORD-1001")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, log.Logger.GetLevel())
	assert.Equal(t, zerolog.WarnLevel, zerolog.DefaultContextLogger.GetLevel())
}

func TestOrdersSearchCommand(t *testing.T) {
	t.Setenv("TRIAGE_ORDERS_PATH", writeOrders(t))

	out, err := runCommand(t, "orders", "search", "--q", "hi, Ana Ruiz here")
	require.NoError(t, err)

	var recs []orderx.Record
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "ORD-1001", recs[0].OrderID)
}

func TestOrdersSearchRequiresQuery(t *testing.T) {
	_, err := runCommand(t, "orders", "search")
	require.Error(t, err)
}

func TestOpenOrdersWrapsCache(t *testing.T) {
	a, err := newOrdersApp(AppConfig{OrderBackend: "file", OrdersPath: writeOrders(t), CacheSize: 8})
	require.NoError(t, err)
	defer a.Close()

	_, ok := a.orders.(*orderx.CachedRepository)
	assert.True(t, ok, "expected a cached repository, got %T", a.orders)

	a2, err := newOrdersApp(AppConfig{OrderBackend: "file", OrdersPath: writeOrders(t)})
	require.NoError(t, err)
	defer a2.Close()
	_, ok = a2.orders.(*orderx.FileRepository)
	assert.True(t, ok, "expected the bare file repository, got %T", a2.orders)
}

func TestUnknownBackends(t *testing.T) {
	_, err := newOrdersApp(AppConfig{OrderBackend: "mongo"})
	assert.True(t, errors.Is(err, contractx.ErrValidation))

	a := &app{cfg: AppConfig{SessionBackend: "etcd"}}
	_, err = a.openSessionStore()
	assert.True(t, errors.Is(err, contractx.ErrValidation))
}

func TestOpenSessionStoreBackends(t *testing.T) {
	a := &app{cfg: AppConfig{SessionBackend: "memory"}}
	store, err := a.openSessionStore()
	require.NoError(t, err)
	assert.IsType(t, &statex.MemoryStore{}, store)

	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "sessions.db"))
	a = &app{cfg: AppConfig{SessionBackend: "sqlite"}}
	store, err = a.openSessionStore()
	require.NoError(t, err)
	assert.IsType(t, &statex.SQLiteStore{}, store)
	require.Len(t, a.closers, 1)
	require.NoError(t, a.Close())
}

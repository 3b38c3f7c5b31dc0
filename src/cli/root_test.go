package cli

import (
	"bytes"
	"io"
	"testing"

	"github.com/Manish6202/MaharaniStore-sub001/src/config"
	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/order/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "seed", "replay-events"}, names)

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.NotNil(t, serve.Flags().Lookup("seed"))
}

func TestRootHelp(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "replay-events")
}

func TestSampleData(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range sampleProducts {
		assert.False(t, seen[p.ID], "duplicate product %s", p.ID)
		seen[p.ID] = true
		assert.True(t, p.IsActive)
		assert.Positive(t, p.Price)
	}
	for _, u := range sampleUsers {
		assert.NotEmpty(t, u.ID)
		assert.NotEmpty(t, u.Phone)
	}

	// A basket of the first two products crosses the free-delivery line.
	totals := domain.DefaultPricing().Calculate([]domain.OrderItem{
		{UnitPrice: sampleProducts[0].Price, Quantity: 1, LineTotal: sampleProducts[0].Price},
		{UnitPrice: sampleProducts[1].Price, Quantity: 2, LineTotal: sampleProducts[1].Price * 2},
	})
	assert.Equal(t, float64(0), totals.DeliveryCharge)
}

func TestNewBrokerDisabled(t *testing.T) {
	logger := log.NewLoggerWithOutput(io.Discard, log.WarnLevel)
	broker, err := newBroker(&config.Config{EventBroker: config.BrokerNone}, logger)
	require.NoError(t, err)
	assert.Nil(t, broker)
}

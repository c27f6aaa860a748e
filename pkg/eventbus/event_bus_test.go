package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/flowcore/pkg/channels/gochannel"
	"github.com/appforge/flowcore/pkg/events"
	"github.com/appforge/flowcore/pkg/models"
)

func TestWatermillEventBus_RunRequestedRoundTrip(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	defer func() { _ = bus.Close() }()

	received := make(chan *events.RunRequested, 1)

	err = bus.Handle(events.RunRequestedEvent, func(_ context.Context, event any) error {
		request, ok := event.(*events.RunRequested)
		require.True(t, ok)
		received <- request

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	graph := &models.Graph{
		Nodes: []*models.Node{{
			ID:   "t",
			Type: models.NodeTypeWorkflow,
			Data: models.NodeData{Category: models.CategoryTriggers, Label: models.LabelOnRecordCreate},
		}},
	}

	execution := models.NewExecutionContext("run-1", "app-1", "user-1")
	execution.Trigger["record"] = map[string]any{"id": float64(7)}

	request := events.NewRunRequested("app-1", "user-1", models.LabelOnRecordCreate, graph, execution)
	require.NoError(t, bus.Publish(ctx, "app-1", request))

	select {
	case got := <-received:
		assert.Equal(t, "app-1", got.AppID)
		assert.Equal(t, models.LabelOnRecordCreate, got.Trigger)
		require.NotNil(t, got.Graph)
		assert.Len(t, got.Graph.Nodes, 1)
		require.NotNil(t, got.Context)
		assert.Equal(t, "run-1", got.Context.RunID)
	case <-time.After(2 * time.Second):
		t.Fatal("run request never arrived")
	}
}

func TestWatermillEventBus_UnhandledTypeIsAcked(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	failed := events.NewRunFailed("app-1", "run-1", "no trigger")
	require.NoError(t, bus.Publish(ctx, "app-1", failed))
}

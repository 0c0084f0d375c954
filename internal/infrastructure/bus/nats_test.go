package bus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svw.info/meldsolver/internal/domain"
	"svw.info/meldsolver/internal/solver"
	"svw.info/meldsolver/internal/usecase"
	"svw.info/meldsolver/internal/workerpool"
)

func newWorker() *Worker {
	uc := usecase.NewService(solver.NewDLXSolver(0), nil, nil, nil, nil)
	return NewWorker(uc, "meldsolver.solve", "meldsolver", nil)
}

func TestHandleSolves(t *testing.T) {
	out := newWorker().Handle(context.Background(), []byte(`{"tiles":["J","R6","R7"]}`))

	var rep Reply
	require.NoError(t, json.Unmarshal(out, &rep))
	assert.Empty(t, rep.Error)
	assert.Equal(t, domain.Solved, rep.Outcome)
	require.Len(t, rep.Melds, 1)
	assert.Equal(t, 3, rep.Melds[0].Len())
}

func TestHandleFailed(t *testing.T) {
	out := newWorker().Handle(context.Background(), []byte(`{"tiles":["R5"]}`))
	var rep Reply
	require.NoError(t, json.Unmarshal(out, &rep))
	assert.Equal(t, domain.Failed, rep.Outcome)
	assert.Empty(t, rep.Melds)
}

func TestHandleBadRequest(t *testing.T) {
	for _, body := range []string{`not json`, `{"tiles":["Z9"]}`, `{"tiles":[60]}`} {
		out := newWorker().Handle(context.Background(), []byte(body))
		var rep Reply
		require.NoError(t, json.Unmarshal(out, &rep))
		assert.Contains(t, rep.Error, "invalid request", "body %s", body)
	}
}

func TestStopWithoutStart(t *testing.T) {
	assert.NoError(t, newWorker().Stop())
}

func TestDispatchOnPool(t *testing.T) {
	w := newWorker()
	w.Pool = workerpool.New(1, 1, nil)
	defer w.Pool.Shutdown()

	got := make(chan []byte, 1)
	w.dispatch(context.Background(), []byte(`{"tiles":["R1","R2","R3"]}`), func(b []byte) { got <- b })

	select {
	case out := <-got:
		var rep Reply
		require.NoError(t, json.Unmarshal(out, &rep))
		assert.Equal(t, domain.Solved, rep.Outcome)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply")
	}
}

func TestDispatchBusy(t *testing.T) {
	w := newWorker()
	w.Pool = workerpool.New(1, 0, nil)
	w.Pool.Shutdown()

	var out []byte
	w.dispatch(context.Background(), []byte(`{"tiles":["R1","R2","R3"]}`), func(b []byte) { out = b })

	var rep Reply
	require.NoError(t, json.Unmarshal(out, &rep))
	assert.Equal(t, domain.Unknown, rep.Outcome)
	assert.Equal(t, "solver busy", rep.Error)
}

package extract

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/jarvis/internal/conversation"
	"github.com/jeanpaul/jarvis/internal/logging"
	"github.com/jeanpaul/jarvis/internal/provider"
)

type recorder struct {
	mu    sync.Mutex
	facts []string
}

func (r *recorder) Add(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.facts = append(r.facts, text)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.facts...)
}

func newLoop(log *conversation.Log, sink Sink) *Loop {
	return New(log, sink, Options{Subject: "Gaurav", Logger: logging.Nop()})
}

func TestPass_NoDuplicatesAcrossPasses(t *testing.T) {
	log := conversation.NewLog("gaurav")
	rec := &recorder{}
	l := newLoop(log, rec)

	log.Append(provider.RoleUser, "Remember that the spare key is under the mat.")
	log.Append(provider.RoleAssistant, "I'll remember that the spare key is under the mat.")
	assert.Equal(t, 1, l.Pass(context.Background()))
	assert.Equal(t, 0, l.Pass(context.Background()))

	log.Append(provider.RoleUser, "my favourite colour is green")
	assert.Equal(t, 1, l.Pass(context.Background()))

	assert.Equal(t, []string{
		"the spare key is under the mat",
		"Gaurav's favourite colour is green",
	}, rec.all())
}

func TestPass_MarkResetsAfterClear(t *testing.T) {
	log := conversation.NewLog("")
	rec := &recorder{}
	l := newLoop(log, rec)

	log.Append(provider.RoleUser, "I like jazz")
	log.Append(provider.RoleUser, "what time is it")
	l.Pass(context.Background())

	log.Clear()
	log.Append(provider.RoleUser, "I'm a nurse")
	assert.Equal(t, 1, l.Pass(context.Background()))
	assert.Equal(t, []string{"Gaurav likes jazz", "Gaurav is a nurse"}, rec.all())
}

func TestPass_ClearThenRegrowPastOldMark(t *testing.T) {
	log := conversation.NewLog("")
	rec := &recorder{}
	l := newLoop(log, rec)

	log.Append(provider.RoleUser, "hello")
	log.Append(provider.RoleAssistant, "hi")
	assert.Equal(t, 0, l.Pass(context.Background()))

	log.Clear()
	log.Append(provider.RoleUser, "I like jazz")
	log.Append(provider.RoleUser, "nice")
	log.Append(provider.RoleUser, "my dog is Rex")
	assert.Equal(t, 2, l.Pass(context.Background()))
	assert.Equal(t, 0, l.Pass(context.Background()))
	assert.Equal(t, []string{"Gaurav likes jazz", "Gaurav's dog is Rex"}, rec.all())
}

func TestPass_ClearToSameLength(t *testing.T) {
	log := conversation.NewLog("")
	rec := &recorder{}
	l := newLoop(log, rec)

	log.Append(provider.RoleUser, "thanks")
	l.Pass(context.Background())

	log.Clear()
	log.Append(provider.RoleUser, "I prefer tea")
	assert.Equal(t, 1, l.Pass(context.Background()))
	assert.Equal(t, []string{"Gaurav prefers tea"}, rec.all())
}

func TestApply_Rules(t *testing.T) {
	rules := DefaultRules()
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"remember my flight is at 9", "my flight is at 9", true},
		{"please note that the wifi password changed", "the wifi password changed", true},
		{"keep in mind that I start work at 8", "I start work at 8", true},
		{"My dog is called Rex!", "Ann's dog is called Rex", true},
		{"I love Italian food", "Ann loves Italian food", true},
		{"I am an engineer", "Ann is an engineer", true},
		{"what is the capital of France?", "", false},
		{"I'm fine", "", false},
		{"I am not sure", "", false},
		{"I'm OK, thanks", "", false},
		{"my question is what?", "", false},
		{"remember that?", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := apply(rules, "Ann", tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoop_StateMachine(t *testing.T) {
	l := newLoop(conversation.NewLog(""), &recorder{})
	assert.Equal(t, Idle, l.State())

	require.NoError(t, l.Start(context.Background(), 10*time.Millisecond))
	assert.Equal(t, Running, l.State())
	assert.ErrorIs(t, l.Start(context.Background(), time.Millisecond), ErrNotIdle)

	l.Stop()
	require.NoError(t, l.Wait())
	assert.Equal(t, Stopped, l.State())
	assert.ErrorIs(t, l.Start(context.Background(), time.Millisecond), ErrNotIdle)
}

func TestLoop_StopBeforeStart(t *testing.T) {
	l := newLoop(conversation.NewLog(""), &recorder{})
	l.Stop()
	assert.Equal(t, Stopped, l.State())
	assert.NoError(t, l.Wait())
	assert.ErrorIs(t, l.Start(context.Background(), time.Millisecond), ErrNotIdle)
}

func TestLoop_ExtractsWhileRunning(t *testing.T) {
	log := conversation.NewLog("")
	rec := &recorder{}
	l := newLoop(log, rec)
	require.NoError(t, l.Start(context.Background(), 5*time.Millisecond))

	log.Append(provider.RoleUser, "remember that the meeting moved to Friday")
	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, 2*time.Second, 5*time.Millisecond)

	l.Stop()
	require.NoError(t, l.Wait())
	assert.Equal(t, []string{"the meeting moved to Friday"}, rec.all())
}

func TestLoop_ParentCancelIsSwallowed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := newLoop(conversation.NewLog(""), &recorder{})
	require.NoError(t, l.Start(ctx, time.Hour))
	cancel()
	assert.NoError(t, l.Wait())
	assert.Equal(t, Stopped, l.State())
}

func TestLoop_DeadlineIsReported(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	l := newLoop(conversation.NewLog(""), &recorder{})
	err := l.Run(ctx, time.Hour)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

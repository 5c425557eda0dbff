package action

import (
	"sync"

	"github.com/ros2go/rclgo/internal/metrics"
	"github.com/ros2go/rclgo/rtime"
)

// internalState extends GoalStatus with the two states that are never
// published on the wire: a goal starts NEW, and either becomes ACCEPTED
// (at which point it gets a wire-visible status) or is REJECTED without
// ever appearing in a GoalStatusArray.
type internalState int32

const (
	stateNew internalState = iota
	stateAccepted
	stateExecuting
	stateCanceling
	stateSucceeded
	stateCanceled
	stateAborted
	stateRejected
)

func (s internalState) wireStatus() (GoalStatus, bool) {
	switch s {
	case stateAccepted:
		return StatusAccepted, true
	case stateExecuting:
		return StatusExecuting, true
	case stateCanceling:
		return StatusCanceling, true
	case stateSucceeded:
		return StatusSucceeded, true
	case stateCanceled:
		return StatusCanceled, true
	case stateAborted:
		return StatusAborted, true
	default: // stateNew, stateRejected
		return StatusUnknown, false
	}
}

func (s internalState) isTerminal() bool {
	switch s {
	case stateSucceeded, stateCanceled, stateAborted, stateRejected:
		return true
	default:
		return false
	}
}

// validTransitions enumerates the state machine's edges. A goal moves
// NEW -> {ACCEPTED, REJECTED}; ACCEPTED -> {EXECUTING, CANCELING, ABORTED},
// since a cancel request may arrive, or the goal may be aborted, before the
// application starts executing;
// EXECUTING -> {SUCCEEDED, ABORTED, CANCELING}; CANCELING -> {CANCELED,
// ABORTED}, since execution may fail while a cancel is in flight. The
// three terminal states and REJECTED have no outgoing edges.
var validTransitions = map[internalState]map[internalState]bool{
	stateNew:       {stateAccepted: true, stateRejected: true},
	stateAccepted:  {stateExecuting: true, stateCanceling: true, stateAborted: true},
	stateExecuting: {stateSucceeded: true, stateAborted: true, stateCanceling: true},
	stateCanceling: {stateCanceled: true, stateAborted: true},
}

func canTransition(from, to internalState) bool {
	return validTransitions[from][to]
}

// goalEntry is one row of the goal table: the goal's GoalInfo (id and
// stamp), its state, and the cached result a get_result request needs once
// the goal reaches a terminal state. The goal payload itself is not kept.
type goalEntry[R any] struct {
	info       GoalInfo
	state      internalState
	hasResult  bool
	result     R
	resultRead bool // terminal result has been delivered to at least one get_result caller; eligible for GC on next publish
}

// goalTable is the single source of truth an ActionServer consults and
// mutates for every operation, modeled as one map guarded by one mutex with
// all transitions funneled through transition(), matching this library's
// design note that every action server decision produces the next
// GoalStatusArray from a single function.
type goalTable[R any] struct {
	mu       sync.Mutex
	goals    map[GoalId]*goalEntry[R]
	metrics  *metrics.Metrics
}

func newGoalTable[R any](m *metrics.Metrics) *goalTable[R] {
	return &goalTable[R]{goals: make(map[GoalId]*goalEntry[R]), metrics: m}
}

var errUnknownGoal = goalError("action: unknown goal id")
var errInvalidTransition = goalError("action: invalid goal state transition")

type goalError string

func (e goalError) Error() string { return string(e) }

func (t *goalTable[R]) insert(id GoalId, stamp rtime.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.goals[id] = &goalEntry[R]{info: GoalInfo{GoalId: id, Stamp: stamp}, state: stateNew}
}

// transition moves id from its current state to next, recording the
// transition metric. It is the single funnel every state change passes
// through.
func (t *goalTable[R]) transition(id GoalId, next internalState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.goals[id]
	if !ok {
		return errUnknownGoal
	}
	if !canTransition(e.state, next) {
		return errInvalidTransition
	}
	e.state = next
	if t.metrics != nil {
		if ws, onWire := next.wireStatus(); onWire {
			t.metrics.GoalTransitionsTotal.WithLabelValues(ws.String()).Inc()
		}
	}
	return nil
}

func (t *goalTable[R]) setResult(id GoalId, result R) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.goals[id]
	if !ok {
		return errUnknownGoal
	}
	e.result = result
	e.hasResult = true
	return nil
}

// snapshotStatus builds the GoalStatusArray as of right now, and drops any
// terminal goal whose result has already been delivered: the retention
// policy this server applies is "keep a terminated goal until its result
// has been fetched at least once, then retire it on the next publish."
func (t *goalTable[R]) snapshotStatus() GoalStatusArray {
	t.mu.Lock()
	defer t.mu.Unlock()

	var arr GoalStatusArray
	active := 0
	for id, e := range t.goals {
		if e.state.isTerminal() && e.resultRead {
			delete(t.goals, id)
			continue
		}
		if ws, onWire := e.state.wireStatus(); onWire {
			arr.StatusList = append(arr.StatusList, GoalStatusEntry{GoalInfo: e.info, Status: ws})
		}
		if !e.state.isTerminal() {
			active++
		}
	}
	if t.metrics != nil {
		t.metrics.ActiveGoals.Set(float64(active))
	}
	return arr
}

func (t *goalTable[R]) get(id GoalId) (goalEntry[R], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.goals[id]
	if !ok {
		return goalEntry[R]{}, false
	}
	return *e, true
}

// markResultRead flags id's result as delivered, making it eligible for
// retirement from the table on the next snapshotStatus.
func (t *goalTable[R]) markResultRead(id GoalId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.goals[id]; ok {
		e.resultRead = true
	}
}

// matchesCancelRequest implements the four cancellation policies selected
// by whether GoalId/Stamp in the request are zero:
//   - both zero: every goal matches (cancel everything).
//   - GoalId zero, Stamp set: every goal accepted at or before Stamp matches.
//   - GoalId set, Stamp zero: only that goal matches, regardless of when it
//     was accepted.
//   - both set: that specific goal matches, AND every goal (any id)
//     accepted at or before Stamp also matches.
func matchesCancelRequest(req CancelGoalRequest, info GoalInfo) bool {
	idIsWildcard := req.GoalInfo.GoalId.IsZero()
	idMatch := idIsWildcard || req.GoalInfo.GoalId == info.GoalId
	stampIsWildcard := req.GoalInfo.Stamp == (rtime.Time{})

	if stampIsWildcard {
		return idMatch
	}
	beforeStamp := info.Stamp.ToNanos() <= req.GoalInfo.Stamp.ToNanos()
	if idIsWildcard {
		return beforeStamp
	}
	return idMatch || beforeStamp
}

// processCancel applies req's policy to every cancelable (ACCEPTED or
// EXECUTING) goal, transitioning each match to CANCELING, and returns the
// GoalInfo of every goal it moved.
func (t *goalTable[R]) processCancel(req CancelGoalRequest) []GoalInfo {
	t.mu.Lock()
	type match struct {
		id   GoalId
		info GoalInfo
	}
	var matches []match
	for id, e := range t.goals {
		if e.state != stateAccepted && e.state != stateExecuting {
			continue
		}
		if matchesCancelRequest(req, e.info) {
			matches = append(matches, match{id: id, info: e.info})
		}
	}
	t.mu.Unlock()

	var moved []GoalInfo
	for _, m := range matches {
		if err := t.transition(m.id, stateCanceling); err == nil {
			moved = append(moved, m.info)
		}
	}
	return moved
}

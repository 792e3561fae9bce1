package live

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"quiz-live-backend/internal/game"
	"quiz-live-backend/internal/models"
	"quiz-live-backend/internal/realtime"
)

type PlayerPhase string

const (
	PlayerWaitingRoom PlayerPhase = "waiting_room"
	PlayerCountdown   PlayerPhase = "countdown"
	PlayerAnswering   PlayerPhase = "answering"
	PlayerFinished    PlayerPhase = "finished"
)

// writeTimeout bounds backend calls made from timers and Close, which have no
// caller context.
const writeTimeout = 10 * time.Second

type QuestionState struct {
	Question models.PublicQuestion `json:"question"`
	AnswerID *uint                 `json:"answer_id,omitempty"`
	Visited  bool                  `json:"visited"`
	Doubtful bool                  `json:"doubtful"`
}

type PlayerView struct {
	Phase                     PlayerPhase               `json:"phase"`
	Session                   models.Session            `json:"session"`
	Participant               models.Participant        `json:"participant"`
	Current                   int                       `json:"current"`
	Questions                 []QuestionState           `json:"questions"`
	CountdownRemainingSeconds float64                   `json:"countdown_remaining_seconds"`
	TimeRemainingSeconds      *float64                  `json:"time_remaining_seconds,omitempty"`
	Offline                   bool                      `json:"offline"`
	Leaderboard               []models.LeaderboardEntry `json:"leaderboard,omitempty"`
}

type Summary struct {
	Total      int   `json:"total"`
	Answered   int   `json:"answered"`
	Unanswered []int `json:"unanswered"`
	Doubtful   []int `json:"doubtful"`
}

// ParticipantController plays one participant through a session. All of its
// state is local except answers, which are written through to the backend.
type ParticipantController struct {
	backend  PlayerBackend
	notifier realtime.Notifier
	clock    Clock
	opts     Options
	store    DoubtfulStore
	token    string

	// Fixed at join; participant below is replaced as the row changes.
	participantID uint
	sessionID     uint

	opMu sync.Mutex
	mu   sync.RWMutex

	phase       PlayerPhase
	session     *models.Session
	participant models.Participant
	questions   []QuestionState
	current     int
	pending     map[uint]models.ResponsePatch
	offline     bool
	leaderboard []models.LeaderboardEntry
	// finishedSelf is set once this participant is finalised, settled once
	// the session is over and the final score and leaderboard are loaded.
	finishedSelf bool
	settled      bool

	countdownTimer Timer
	cancel         context.CancelFunc
	done           chan struct{}
	updates        chan struct{}
	closed         bool
}

type JoinParams struct {
	Pin      string
	Nickname string
	UserID   *uint
}

// JoinGame finds the session behind a PIN, joins it and starts following it.
func JoinGame(ctx context.Context, backend PlayerBackend, notifier realtime.Notifier, clock Clock, store DoubtfulStore, opts Options, params JoinParams) (*ParticipantController, error) {
	if clock == nil {
		clock = SystemClock()
	}
	if store == nil {
		store = NewMemoryDoubtfulStore()
	}

	session, err := backend.FindSessionByPin(ctx, params.Pin)
	if err != nil {
		return nil, err
	}
	joined, err := backend.JoinSession(ctx, session.ID, params.Nickname, params.UserID)
	if err != nil {
		return nil, err
	}
	questions, err := backend.SessionQuestions(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	c := &ParticipantController{
		backend:       backend,
		notifier:      notifier,
		clock:         clock,
		opts:          opts.withDefaults(),
		store:         store,
		token:         joined.Token,
		participantID: joined.Participant.ID,
		sessionID:     joined.Participant.SessionID,
		phase:         PlayerWaitingRoom,
		participant:   joined.Participant,
		current:       -1,
		pending:       make(map[uint]models.ResponsePatch),
		updates:       make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
	c.finishedSelf = joined.Participant.Status == game.ParticipantFinished

	flags, err := store.Load(DoubtfulKey(session.ID, joined.Participant.ID))
	if err != nil {
		log.Printf("live: load doubtful flags: %v", err)
	}
	c.questions = make([]QuestionState, len(questions))
	for i, q := range questions {
		c.questions[i] = QuestionState{Question: q, Doubtful: flags[q.ID]}
	}

	latest := &joined.Session
	if joined.Session.ID == 0 || session.Newer(latest) {
		latest = session
	}

	// Subscribe before applying the snapshot so no change falls in between.
	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	sub := c.subscribe(loopCtx, session.ID)

	c.opMu.Lock()
	c.applyLocked(ctx, latest)
	c.opMu.Unlock()

	go c.run(loopCtx, session.ID, sub)
	return c, nil
}

func (c *ParticipantController) subscribe(ctx context.Context, sessionID uint) *realtime.Subscription {
	if c.notifier == nil {
		return nil
	}
	sub, err := c.notifier.Subscribe(ctx, realtime.TableSessions, sessionID)
	if err != nil {
		log.Printf("live: session %d: subscribe: %v", sessionID, err)
		return nil
	}
	return sub
}

// run feeds the reconciler from the change stream and a poll ticker. The
// ticker catches changes a dropped notification or a broken stream missed.
func (c *ParticipantController) run(ctx context.Context, sessionID uint, sub *realtime.Subscription) {
	defer close(c.done)

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	var changes <-chan realtime.Change
	subscribe := func() {
		if sub = c.subscribe(ctx, sessionID); sub != nil {
			changes = sub.C
		}
	}
	if sub != nil {
		changes = sub.C
	}
	defer func() { sub.Close() }()

	if c.isSettled() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				sub.Close()
				sub, changes = nil, nil
				continue
			}
		case <-ticker.C:
			if changes == nil {
				subscribe()
			}
		}
		if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
			log.Printf("live: session %d: reconcile: %v", sessionID, err)
		}
		if c.isSettled() {
			return
		}
	}
}

// Refresh fetches the session, retries pending writes and applies the
// snapshot. Applying a snapshot the controller already holds changes nothing.
func (c *ParticipantController) Refresh(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}
	session, err := c.backend.GetSession(ctx, c.sessionID)
	if err != nil {
		return err
	}
	if err := c.flushLocked(ctx); err != nil {
		log.Printf("live: participant %d: dropped write: %v", c.participantID, err)
	}
	c.applyLocked(ctx, session)
	return nil
}

// applyLocked installs a newer snapshot and moves the phase to match it.
// Callers hold opMu.
func (c *ParticipantController) applyLocked(ctx context.Context, session *models.Session) {
	c.mu.Lock()
	if !session.Newer(c.session) {
		c.mu.Unlock()
		if session.Finished() && !c.settled {
			c.settleLocked(ctx)
		}
		return
	}
	c.session = session
	c.mu.Unlock()

	switch {
	case session.Finished():
		c.settleLocked(ctx)
	case session.Status == game.StatusWaiting:
		c.setPhase(PlayerWaitingRoom)
	case c.finishedSelf:
		c.setPhase(PlayerFinished)
	default:
		remaining := game.RemainingCountdown(session.StartedAt, c.clock.Now())
		if remaining > 0 {
			c.mu.Lock()
			c.phase = PlayerCountdown
			stopTimer(c.countdownTimer)
			c.countdownTimer = c.clock.AfterFunc(remaining, c.countdownElapsed)
			c.mu.Unlock()
			c.notify()
			return
		}
		c.enterAnsweringLocked(ctx)
	}
}

func (c *ParticipantController) countdownElapsed() {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	c.opMu.Lock()
	defer c.opMu.Unlock()
	if c.isClosed() || c.Phase() != PlayerCountdown {
		return
	}
	c.enterAnsweringLocked(ctx)
}

func (c *ParticipantController) enterAnsweringLocked(ctx context.Context) {
	if c.Phase() == PlayerAnswering {
		return
	}
	c.setPhase(PlayerAnswering)
	if c.current < 0 && len(c.questions) > 0 {
		if err := c.focusLocked(ctx, 0); err != nil {
			log.Printf("live: participant %d: focus first question: %v", c.participantID, err)
		}
	}
}

// settleLocked handles the end of the session: close the open response, make
// sure the own score exists and load the leaderboard. It runs again on the
// next reconcile until all of that succeeded.
func (c *ParticipantController) settleLocked(ctx context.Context) {
	c.mu.Lock()
	c.phase = PlayerFinished
	stopTimer(c.countdownTimer)
	c.countdownTimer = nil
	current, finishedSelf := c.current, c.finishedSelf
	c.mu.Unlock()
	defer c.notify()

	if current >= 0 && !finishedSelf {
		now := c.clock.Now()
		c.queueLocked(models.ResponsePatch{QuestionID: c.questions[current].Question.ID, EndedAt: &now})
	}
	if err := c.flushLocked(ctx); err != nil {
		log.Printf("live: participant %d: final write refused: %v", c.participantID, err)
	}
	if c.isOffline() {
		return
	}

	scored, err := c.backend.ComputeScore(ctx, c.participantID)
	if err != nil {
		log.Printf("live: participant %d: score: %v", c.participantID, err)
		c.setOffline(!game.IsPermanent(err))
		return
	}
	board, err := c.backend.GetLeaderboard(ctx, c.sessionID)
	if err != nil {
		log.Printf("live: participant %d: leaderboard: %v", c.participantID, err)
		c.setOffline(!game.IsPermanent(err))
		return
	}

	c.mu.Lock()
	c.participant = *scored
	c.leaderboard = board
	c.finishedSelf = true
	c.settled = true
	c.current = -1
	c.mu.Unlock()
}

// Goto moves focus to another question. The question left gets its ended_at
// and the question entered gets its started_at, which the server keeps from
// the first visit.
func (c *ParticipantController) Goto(ctx context.Context, index int) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.playable(); err != nil {
		return err
	}
	if index < 0 || index >= len(c.questions) {
		return fmt.Errorf("%w: index %d", game.ErrQuestionNotFound, index)
	}
	if index == c.current {
		return nil
	}
	return c.focusLocked(ctx, index)
}

func (c *ParticipantController) focusLocked(ctx context.Context, index int) error {
	now := c.clock.Now()

	c.mu.Lock()
	previous := c.current
	c.current = index
	c.questions[index].Visited = true
	c.mu.Unlock()

	if previous >= 0 {
		c.queueLocked(models.ResponsePatch{QuestionID: c.questions[previous].Question.ID, EndedAt: &now})
	}
	c.queueLocked(models.ResponsePatch{QuestionID: c.questions[index].Question.ID, StartedAt: &now})
	c.notify()
	return c.flushLocked(ctx)
}

// Select records the answer for the current question, replacing any earlier
// choice.
func (c *ParticipantController) Select(ctx context.Context, answerID uint) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.playable(); err != nil {
		return err
	}
	if c.current < 0 {
		return game.ErrQuestionNotFound
	}
	question := c.questions[c.current].Question
	valid := false
	for _, a := range question.Answers {
		if a.ID == answerID {
			valid = true
			break
		}
	}
	if !valid {
		return game.ErrInvalidAnswer
	}

	c.mu.Lock()
	c.questions[c.current].AnswerID = &answerID
	c.mu.Unlock()
	c.notify()

	c.queueLocked(models.ResponsePatch{QuestionID: question.ID, AnswerID: &answerID})
	return c.flushLocked(ctx)
}

// ToggleDoubtful flips the "not sure" mark on a question and returns the new
// value. The mark is kept locally only.
func (c *ParticipantController) ToggleDoubtful(index int) (bool, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.playable(); err != nil {
		return false, err
	}
	if index < 0 || index >= len(c.questions) {
		return false, fmt.Errorf("%w: index %d", game.ErrQuestionNotFound, index)
	}

	c.mu.Lock()
	c.questions[index].Doubtful = !c.questions[index].Doubtful
	on := c.questions[index].Doubtful
	flags := make(map[uint]bool)
	for _, q := range c.questions {
		if q.Doubtful {
			flags[q.Question.ID] = true
		}
	}
	key := DoubtfulKey(c.sessionID, c.participantID)
	c.mu.Unlock()
	c.notify()

	if err := c.store.Save(key, flags); err != nil {
		log.Printf("live: participant %d: save doubtful flags: %v", c.participantID, err)
	}
	return on, nil
}

// Summary is shown before finishing: what is still unanswered or marked.
func (c *ParticipantController) Summary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Summary{Total: len(c.questions), Unanswered: []int{}, Doubtful: []int{}}
	for i, q := range c.questions {
		if q.AnswerID != nil {
			s.Answered++
		} else {
			s.Unanswered = append(s.Unanswered, i)
		}
		if q.Doubtful {
			s.Doubtful = append(s.Doubtful, i)
		}
	}
	return s
}

// Finish ends this participant's game. Under first_finish it ends the
// session for everyone.
func (c *ParticipantController) Finish(ctx context.Context) (*FinishOutcome, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.playable(); err != nil {
		return nil, err
	}
	if c.current >= 0 {
		now := c.clock.Now()
		c.queueLocked(models.ResponsePatch{QuestionID: c.questions[c.current].Question.ID, EndedAt: &now})
	}
	if err := c.flushLocked(ctx); err != nil {
		log.Printf("live: participant %d: write refused before finish: %v", c.participantID, err)
	}
	if c.isOffline() {
		return nil, ErrOffline
	}

	outcome, err := c.backend.FinishParticipant(ctx, c.participantID)
	if err != nil {
		if !game.IsPermanent(err) {
			c.setOffline(true)
		}
		return nil, err
	}

	c.mu.Lock()
	c.participant = *outcome.Participant
	c.finishedSelf = true
	c.phase = PlayerFinished
	c.current = -1
	c.mu.Unlock()
	c.notify()

	if outcome.Session != nil {
		c.applyLocked(ctx, outcome.Session)
	}
	if !c.isSettled() {
		if board, err := c.backend.GetLeaderboard(ctx, c.sessionID); err == nil {
			c.mu.Lock()
			c.leaderboard = board
			c.mu.Unlock()
		}
	}
	return outcome, nil
}

// Leave removes the participant. It is only possible before the game starts.
func (c *ParticipantController) Leave(ctx context.Context) error {
	c.opMu.Lock()
	if c.isClosed() {
		c.opMu.Unlock()
		return ErrClosed
	}
	if c.Phase() != PlayerWaitingRoom {
		c.opMu.Unlock()
		return game.ErrSessionStarted
	}
	err := c.backend.LeaveSession(ctx, c.participantID)
	c.opMu.Unlock()
	if err != nil {
		return err
	}
	c.shutdown()
	return nil
}

// Results reads the leaderboard from the server.
func (c *ParticipantController) Results(ctx context.Context) ([]models.LeaderboardEntry, error) {
	board, err := c.backend.GetLeaderboard(ctx, c.sessionID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.leaderboard = board
	c.mu.Unlock()
	return board, nil
}

// Close stops following the session. An open question gets its ended_at
// first, on a best effort basis.
func (c *ParticipantController) Close() {
	c.opMu.Lock()
	if c.isClosed() {
		c.opMu.Unlock()
		return
	}
	if c.Phase() == PlayerAnswering && c.current >= 0 {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		now := c.clock.Now()
		c.queueLocked(models.ResponsePatch{QuestionID: c.questions[c.current].Question.ID, EndedAt: &now})
		if err := c.flushLocked(ctx); err != nil {
			log.Printf("live: participant %d: final write refused: %v", c.participantID, err)
		}
		cancel()
	}
	c.opMu.Unlock()
	c.shutdown()
}

func (c *ParticipantController) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	stopTimer(c.countdownTimer)
	c.countdownTimer = nil
	close(c.updates)
	c.mu.Unlock()

	c.cancel()
	<-c.done
}

// queueLocked merges a patch into the pending writes of its question. The
// earliest start, the latest answer and the latest end win.
func (c *ParticipantController) queueLocked(patch models.ResponsePatch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	held, ok := c.pending[patch.QuestionID]
	if !ok {
		c.pending[patch.QuestionID] = patch
		return
	}
	if patch.StartedAt != nil && (held.StartedAt == nil || patch.StartedAt.Before(*held.StartedAt)) {
		held.StartedAt = patch.StartedAt
	}
	if patch.AnswerID != nil {
		held.AnswerID = patch.AnswerID
	}
	if patch.EndedAt != nil && (held.EndedAt == nil || patch.EndedAt.After(*held.EndedAt)) {
		held.EndedAt = patch.EndedAt
	}
	c.pending[patch.QuestionID] = held
}

// flushLocked sends pending writes in question order. A transient failure
// keeps the write and everything after it for the next attempt; a refusal
// drops the write and is returned.
func (c *ParticipantController) flushLocked(ctx context.Context) error {
	c.mu.RLock()
	ids := make([]uint, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	c.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var refused error
	for _, id := range ids {
		c.mu.RLock()
		patch := c.pending[id]
		c.mu.RUnlock()

		_, err := c.backend.UpsertResponse(ctx, c.participantID, patch)
		// A server clock still inside the countdown refuses the write for now.
		if err != nil && (!game.IsPermanent(err) || errors.Is(err, game.ErrSessionNotStarted)) {
			log.Printf("live: participant %d: write question %d: %v", c.participantID, id, err)
			break
		}
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		if err != nil && refused == nil {
			refused = err
		}
	}

	c.mu.Lock()
	c.offline = len(c.pending) > 0
	c.mu.Unlock()
	c.notify()
	return refused
}

func (c *ParticipantController) playable() error {
	if c.isClosed() {
		return ErrClosed
	}
	switch c.Phase() {
	case PlayerAnswering:
		return nil
	case PlayerFinished:
		if c.isSettled() {
			return game.ErrSessionFinished
		}
		return game.ErrParticipantFinished
	default:
		return game.ErrSessionNotStarted
	}
}

func (c *ParticipantController) notify() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// Updates signals that the view changed. It is closed by Close and Leave.
func (c *ParticipantController) Updates() <-chan struct{} {
	return c.updates
}

func (c *ParticipantController) View() PlayerView {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v := PlayerView{
		Phase:       c.phase,
		Participant: c.participant,
		Current:     c.current,
		Questions:   make([]QuestionState, len(c.questions)),
		Offline:     c.offline,
		Leaderboard: append([]models.LeaderboardEntry(nil), c.leaderboard...),
	}
	copy(v.Questions, c.questions)
	if c.session != nil {
		v.Session = *c.session
		now := c.clock.Now()
		v.CountdownRemainingSeconds = game.RemainingCountdown(c.session.StartedAt, now).Seconds()
		if c.session.Status == game.StatusActive {
			if remaining, ok := game.RemainingPlay(c.session.StartedAt, c.session.TotalTimeMinutes, now); ok {
				secs := remaining.Seconds()
				v.TimeRemainingSeconds = &secs
			}
		}
	}
	return v
}

// Token authenticates this participant's calls to the play API.
func (c *ParticipantController) Token() string {
	return c.token
}

func (c *ParticipantController) ParticipantID() uint {
	return c.participantID
}

func (c *ParticipantController) Phase() PlayerPhase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

func (c *ParticipantController) setPhase(p PlayerPhase) {
	c.mu.Lock()
	changed := c.phase != p
	c.phase = p
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

func (c *ParticipantController) setOffline(v bool) {
	c.mu.Lock()
	c.offline = v
	c.mu.Unlock()
	c.notify()
}

func (c *ParticipantController) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *ParticipantController) isOffline() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offline
}

func (c *ParticipantController) isSettled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settled
}

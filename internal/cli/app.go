// Package cli is a terminal front end for one participant in a live game.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"quiz-live-backend/internal/game"
	"quiz-live-backend/internal/live"
	"quiz-live-backend/internal/models"
)

// Player is the part of live.ParticipantController the terminal drives.
type Player interface {
	View() live.PlayerView
	Updates() <-chan struct{}
	Goto(ctx context.Context, index int) error
	Select(ctx context.Context, answerID uint) error
	ToggleDoubtful(index int) (bool, error)
	Summary() live.Summary
	Finish(ctx context.Context) (*live.FinishOutcome, error)
	Leave(ctx context.Context) error
	Results(ctx context.Context) ([]models.LeaderboardEntry, error)
	Close()
}

var _ Player = (*live.ParticipantController)(nil)

const helpText = `Commands:
  n          next question
  p          previous question
  g <n>      go to question n
  a <letter> answer the current question
  d          mark or unmark the current question as doubtful
  s          summary of answered and doubtful questions
  f          finish
  r          leaderboard
  q          quit
`

type command struct {
	name string
	arg  string
}

var errUnknownCommand = errors.New("unknown command, type h for help")

func parseCommand(line string) (command, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return command{}, errUnknownCommand
	}
	cmd := command{name: strings.ToLower(fields[0])}
	switch cmd.name {
	case "n", "p", "d", "s", "f", "r", "q", "h":
		if len(fields) != 1 {
			return command{}, fmt.Errorf("%s takes no argument", cmd.name)
		}
	case "g", "a":
		if len(fields) != 2 {
			return command{}, fmt.Errorf("%s needs one argument", cmd.name)
		}
		cmd.arg = fields[1]
	default:
		return command{}, errUnknownCommand
	}
	return cmd, nil
}

// answerIndex maps a letter A, B, ... onto an answer position.
func answerIndex(letter string, count int) (int, bool) {
	letter = strings.ToUpper(strings.TrimSpace(letter))
	if len(letter) != 1 || count < 1 {
		return -1, false
	}
	idx := int(letter[0]) - 'A'
	if idx < 0 || idx >= count {
		return -1, false
	}
	return idx, true
}

func answerLetter(idx int) string {
	return string(rune('A' + idx))
}

type app struct {
	player Player
	out    io.Writer
	phase  live.PlayerPhase
	// shown tracks what was last printed so updates only redraw on change.
	shownCurrent int
	shownBoard   bool
	offline      bool
}

// Run drives player from commands read on in until the game is over, the
// player quits or ctx is cancelled. The player is closed on return.
func Run(ctx context.Context, in io.Reader, out io.Writer, player Player) error {
	a := &app{player: player, out: out, shownCurrent: -1}
	defer player.Close()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprint(out, helpText)
	if a.refresh() {
		return nil
	}

	updates := player.Updates()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-updates:
			if !ok {
				return nil
			}
			if a.refresh() {
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			quit, err := a.execute(ctx, line)
			if err != nil {
				fmt.Fprintf(out, "! %s\n", describe(err))
			}
			if quit || a.refresh() {
				return nil
			}
		}
	}
}

// refresh prints whatever changed since the last call and reports whether
// the game is over for this player.
func (a *app) refresh() bool {
	v := a.player.View()
	if v.Phase != a.phase {
		a.phase = v.Phase
		a.shownCurrent = -1
		switch v.Phase {
		case live.PlayerWaitingRoom:
			fmt.Fprintf(a.out, "\nJoined as %s. Waiting for the host to start...\n", v.Participant.Nickname)
		case live.PlayerCountdown:
			fmt.Fprintf(a.out, "\nGet ready! Starting in %.0f seconds.\n", v.CountdownRemainingSeconds)
		case live.PlayerFinished:
			fmt.Fprintf(a.out, "\nFinished. Your score: %d\n", v.Participant.Score)
		}
	}
	if v.Offline != a.offline {
		a.offline = v.Offline
		if v.Offline {
			fmt.Fprintln(a.out, "! offline, answers will be saved when the connection is back")
		} else {
			fmt.Fprintln(a.out, "Back online.")
		}
	}
	if v.Phase == live.PlayerAnswering && v.Current != a.shownCurrent && v.Current >= 0 {
		a.shownCurrent = v.Current
		renderQuestion(a.out, v)
	}
	if v.Session.Status == game.StatusFinished && len(v.Leaderboard) > 0 && !a.shownBoard {
		a.shownBoard = true
		renderLeaderboard(a.out, v.Leaderboard, v.Participant.ID)
		return true
	}
	return false
}

func (a *app) execute(ctx context.Context, line string) (bool, error) {
	cmd, err := parseCommand(line)
	if err != nil {
		return false, err
	}
	v := a.player.View()

	switch cmd.name {
	case "h":
		fmt.Fprint(a.out, helpText)
	case "n":
		return false, a.player.Goto(ctx, v.Current+1)
	case "p":
		return false, a.player.Goto(ctx, v.Current-1)
	case "g":
		n, err := strconv.Atoi(cmd.arg)
		if err != nil {
			return false, fmt.Errorf("not a question number: %s", cmd.arg)
		}
		return false, a.player.Goto(ctx, n-1)
	case "a":
		if v.Current < 0 || v.Current >= len(v.Questions) {
			return false, live.ErrWrongPhase
		}
		answers := v.Questions[v.Current].Question.Answers
		idx, ok := answerIndex(cmd.arg, len(answers))
		if !ok {
			return false, fmt.Errorf("enter a letter A-%s", answerLetter(len(answers)-1))
		}
		if err := a.player.Select(ctx, answers[idx].ID); err != nil {
			return false, err
		}
		fmt.Fprintf(a.out, "Answered %s.\n", answerLetter(idx))
	case "d":
		on, err := a.player.ToggleDoubtful(v.Current)
		if err != nil {
			return false, err
		}
		if on {
			fmt.Fprintln(a.out, "Marked as doubtful.")
		} else {
			fmt.Fprintln(a.out, "Doubtful mark removed.")
		}
	case "s":
		renderSummary(a.out, a.player.Summary())
	case "f":
		outcome, err := a.player.Finish(ctx)
		if err != nil {
			return false, err
		}
		if outcome.Terminated {
			fmt.Fprintln(a.out, "You finished first and ended the game.")
		}
	case "r":
		board, err := a.player.Results(ctx)
		if err != nil {
			return false, err
		}
		renderLeaderboard(a.out, board, v.Participant.ID)
	case "q":
		if v.Phase == live.PlayerWaitingRoom {
			if err := a.player.Leave(ctx); err != nil {
				return false, err
			}
			fmt.Fprintln(a.out, "Left the session.")
		}
		return true, nil
	}
	return false, nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, live.ErrWrongPhase), errors.Is(err, game.ErrSessionNotStarted):
		return "not possible right now"
	case errors.Is(err, game.ErrQuestionNotFound):
		return "no such question"
	case errors.Is(err, game.ErrSessionFinished):
		return "the game is over"
	case errors.Is(err, live.ErrOffline):
		return "offline, try again when the connection is back"
	}
	return err.Error()
}

func renderQuestion(out io.Writer, v live.PlayerView) {
	state := v.Questions[v.Current]
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Q%d/%d: %s", v.Current+1, len(v.Questions), state.Question.Text)
	if state.Doubtful {
		fmt.Fprint(out, " (doubtful)")
	}
	fmt.Fprintln(out)
	if v.TimeRemainingSeconds != nil {
		fmt.Fprintf(out, "Time left: %s\n", formatSeconds(*v.TimeRemainingSeconds))
	}
	fmt.Fprintln(out)
	for i, answer := range state.Question.Answers {
		marker := " "
		if state.AnswerID != nil && *state.AnswerID == answer.ID {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s. %s\n", marker, answerLetter(i), answer.Text)
	}
	fmt.Fprintln(out)
}

func renderSummary(out io.Writer, s live.Summary) {
	fmt.Fprintf(out, "Answered %d of %d.\n", s.Answered, s.Total)
	if len(s.Unanswered) > 0 {
		fmt.Fprintf(out, "Unanswered: %s\n", questionList(s.Unanswered))
	}
	if len(s.Doubtful) > 0 {
		fmt.Fprintf(out, "Doubtful: %s\n", questionList(s.Doubtful))
	}
}

func renderLeaderboard(out io.Writer, board []models.LeaderboardEntry, self uint) {
	fmt.Fprintln(out, "\nLeaderboard")
	for _, e := range board {
		you := ""
		if e.ParticipantID == self {
			you = "  <- you"
		}
		fmt.Fprintf(out, "%3d. %-20s %6d  %5.1fs%s\n", e.Rank, e.Nickname, e.Score, e.AvgResponseTimeSeconds, you)
	}
}

func questionList(indexes []int) string {
	parts := make([]string, len(indexes))
	for i, idx := range indexes {
		parts[i] = strconv.Itoa(idx + 1)
	}
	return strings.Join(parts, ", ")
}

func formatSeconds(secs float64) string {
	if secs < 0 {
		secs = 0
	}
	total := int(secs)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

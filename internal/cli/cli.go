// Package cli runs a practice test in the terminal against a local store.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/permit-prep/internal/explain"
	"github.com/gokatarajesh/permit-prep/internal/jurisdiction"
	"github.com/gokatarajesh/permit-prep/internal/practice"
	"github.com/gokatarajesh/permit-prep/internal/question"
	"github.com/gokatarajesh/permit-prep/internal/storage"
)

// Config wires the terminal session.
type Config struct {
	Store          storage.KV
	Profile        string
	Jurisdiction   string
	Explainer      explain.Explainer
	ExplainTimeout time.Duration
	PassPercent    int
	Rand           practice.Rand
	Logger         zerolog.Logger
}

var errQuit = errors.New("quit")

type session struct {
	reader *bufio.Reader
	out    io.Writer
	m      *practice.Manager
	j      jurisdiction.Jurisdiction
}

// Run plays until the learner quits or input ends. Progress is saved after
// every step, so quitting mid-test resumes on the next Run.
func Run(ctx context.Context, in io.Reader, out io.Writer, cfg Config) error {
	j, err := jurisdiction.Lookup(cfg.Jurisdiction)
	if err != nil {
		return fmt.Errorf("jurisdiction %q: %w", cfg.Jurisdiction, err)
	}
	profile, err := practice.ValidateProfile(cfg.Profile)
	if err != nil {
		return err
	}

	m := practice.NewManager(practice.Options{
		Store:          cfg.Store,
		Key:            practice.ProgressKey(profile),
		Source:         question.NewSource(cfg.Store, cfg.Logger),
		Explainer:      cfg.Explainer,
		ExplainTimeout: cfg.ExplainTimeout,
		PassPercent:    cfg.PassPercent,
		Rand:           cfg.Rand,
		Logger:         cfg.Logger,
	})
	s := &session{reader: bufio.NewReader(in), out: out, m: m, j: j}

	fmt.Fprintf(out, "%s Driver's Permit Practice Test (%s)\n", j.Name, j.Agency)
	if m.Initialize(ctx, j) && m.View().HasProgress {
		resume, err := promptYesNo(s.reader, out, "You have a test in progress. Resume it? (yes/no): ")
		if err != nil {
			return ignoreEOF(err)
		}
		if !resume {
			m.Exit(ctx)
			m.Initialize(ctx, j)
		}
	}

	for {
		var err error
		if m.Status() == practice.StatusComplete {
			err = s.results(ctx)
		} else {
			err = s.question(ctx)
		}
		if err != nil {
			if errors.Is(err, errQuit) {
				fmt.Fprintln(out, "Goodbye.")
				return nil
			}
			return ignoreEOF(err)
		}
	}
}

func (s *session) question(ctx context.Context) error {
	v := s.m.View()
	q := v.Question
	mark := ""
	if v.Bookmarked {
		mark = " [bookmarked]"
	}
	fmt.Fprintf(s.out, "\nQuestion %d/%d  (%s)%s\n", v.CurrentIndex+1, v.Total, q.Category, mark)
	fmt.Fprintf(s.out, "%s\n\n", q.Text)
	if q.Image != "" {
		fmt.Fprintf(s.out, "Image: %s\n\n", q.Image)
	}
	for i, opt := range q.Options {
		fmt.Fprintf(s.out, "%c. %s\n", 'A'+i, opt)
	}
	if v.State.IsSubmitted {
		printFeedback(s.out, v)
	}

	fmt.Fprint(s.out, "\n[A-D] answer  n next  s skip  p previous  m bookmark  e explain  q quit: ")
	line, err := s.reader.ReadString('\n')
	if err != nil && line == "" {
		return err
	}
	cmd := strings.ToUpper(strings.TrimSpace(line))

	switch {
	case len(cmd) == 1 && cmd[0] >= 'A' && cmd[0] < 'A'+question.OptionCount:
		if !s.m.SubmitAnswer(ctx, int(cmd[0]-'A')) {
			fmt.Fprintln(s.out, "Already answered.")
			return nil
		}
		printFeedback(s.out, s.m.View())
		return s.awaitNext(ctx)
	case cmd == "N":
		s.m.Advance(ctx)
	case cmd == "S":
		s.m.Skip(ctx)
	case cmd == "P":
		if !s.m.GoBack(ctx) {
			fmt.Fprintln(s.out, "This is the first question you visited.")
		}
	case cmd == "M":
		if s.m.ToggleBookmark(ctx) {
			fmt.Fprintln(s.out, "Bookmarked.")
		} else {
			fmt.Fprintln(s.out, "Bookmark removed.")
		}
	case cmd == "E":
		s.explain(ctx)
	case cmd == "Q":
		return errQuit
	default:
		fmt.Fprintln(s.out, "Unrecognised input.")
	}
	return nil
}

// awaitNext pauses after feedback so the explanation can be read or requested.
func (s *session) awaitNext(ctx context.Context) error {
	for {
		fmt.Fprint(s.out, "\nn next  e explain  q quit: ")
		line, err := s.reader.ReadString('\n')
		if err != nil && line == "" {
			return err
		}
		switch strings.ToUpper(strings.TrimSpace(line)) {
		case "N", "":
			s.m.Advance(ctx)
			return nil
		case "E":
			s.explain(ctx)
		case "Q":
			return errQuit
		}
	}
}

func (s *session) explain(ctx context.Context) {
	_, ch, err := s.m.RequestExplanation(ctx)
	if errors.Is(err, practice.ErrNotSubmitted) {
		fmt.Fprintln(s.out, "Answer the question first, then ask the tutor.")
		return
	}
	if err != nil {
		return
	}
	fmt.Fprintln(s.out, "Asking the tutor...")
	select {
	case text, ok := <-ch:
		if ok {
			fmt.Fprintf(s.out, "Tutor: %s\n", text)
		}
	case <-ctx.Done():
	}
}

func (s *session) results(ctx context.Context) error {
	v := s.m.View()
	r := v.Result
	verdict := "FAILED"
	if r.Passed {
		verdict = "PASSED"
	}
	fmt.Fprintf(s.out, "\nTest complete: %d/%d correct (%d%%) - %s\n", r.Correct, r.Total, r.Percentage, verdict)
	fmt.Fprintf(s.out, "Answered %d, skipped %d.\n", r.Answered, r.Total-r.Answered)

	prompt := "\nr retake  x exit and clear progress  q quit: "
	if v.BookmarkCount > 0 {
		prompt = fmt.Sprintf("\nr retake  k review %d bookmarked  x exit and clear progress  q quit: ", v.BookmarkCount)
	}
	for {
		fmt.Fprint(s.out, prompt)
		line, err := s.reader.ReadString('\n')
		if err != nil && line == "" {
			return err
		}
		switch strings.ToUpper(strings.TrimSpace(line)) {
		case "R":
			s.m.Restart(ctx, false)
			return nil
		case "K":
			if s.m.Restart(ctx, true) {
				return nil
			}
			fmt.Fprintln(s.out, "No bookmarked questions.")
		case "X":
			s.m.Exit(ctx)
			return errQuit
		case "Q":
			return errQuit
		}
	}
}

func printFeedback(out io.Writer, v practice.View) {
	q, st := v.Question, v.State
	if st.SelectedOption == nil || q.CorrectIndex == nil {
		return
	}
	if *st.SelectedOption == *q.CorrectIndex {
		fmt.Fprintln(out, "\nCorrect!")
	} else {
		fmt.Fprintf(out, "\nIncorrect. The answer is %c. %s\n", 'A'+*q.CorrectIndex, q.Options[*q.CorrectIndex])
	}
	fmt.Fprintln(out, q.Explanation)
	if st.AIExplanation != nil {
		fmt.Fprintf(out, "Tutor: %s\n", *st.AIExplanation)
	}
}

func promptYesNo(reader *bufio.Reader, out io.Writer, prompt string) (bool, error) {
	for {
		fmt.Fprint(out, prompt)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintln(out, "Please answer yes or no.")
		}
	}
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

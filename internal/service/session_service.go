package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"

	"sorting-hat/internal/domain"
	"sorting-hat/internal/repository"
)

// SessionService tracks each user's progress through the sorting quiz. State
// is in-memory only; a restart drops every in-flight quiz, which callers see
// as ErrNoActiveSession on their next answer.
type SessionService struct {
	mu       sync.Mutex
	sessions map[string]*quizSession

	results   repository.ResultRepository
	questions []domain.Question
	logger    *zap.Logger
	randIntN  func(n int) int
}

type quizSession struct {
	current int
	answers []domain.HouseKey
}

var (
	ErrAlreadySorted   = errors.New("user already sorted")
	ErrNoActiveSession = errors.New("no active session")
	ErrInvalidOption   = errors.New("option index out of range")
)

// Step is one question to put in front of the user.
type Step struct {
	Question domain.Question
	Index    int
	Total    int
}

// Advance is the outcome of a submitted answer: either the next step or the
// final house, never both.
type Advance struct {
	Next  *Step
	House *domain.House
}

func NewSessionService(results repository.ResultRepository, questions []domain.Question, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessions:  make(map[string]*quizSession),
		results:   results,
		questions: questions,
		logger:    logger,
		randIntN:  rand.IntN,
	}
}

// Begin starts a fresh quiz for the user. Any in-flight session for the same
// user is dropped wholesale; a user that already has a result is rejected.
func (s *SessionService) Begin(userID string) (Step, error) {
	if s.results != nil && s.results.Contains(userID) {
		return Step{}, ErrAlreadySorted
	}

	s.mu.Lock()
	s.sessions[userID] = &quizSession{answers: make([]domain.HouseKey, 0, len(s.questions))}
	s.mu.Unlock()

	s.logger.Info("quiz started", zap.String("user_id", userID))
	return Step{Question: s.questions[0], Index: 0, Total: len(s.questions)}, nil
}

// Answer records the chosen option and advances the session. The whole
// read-check-advance runs under the lock so two racing answers cannot
// double-advance one session.
func (s *SessionService) Answer(ctx context.Context, userID string, optionIndex int) (Advance, error) {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	if !ok {
		s.mu.Unlock()
		return Advance{}, ErrNoActiveSession
	}

	question := s.questions[session.current]
	if optionIndex < 0 || optionIndex >= len(question.Options) {
		s.mu.Unlock()
		return Advance{}, ErrInvalidOption
	}

	session.answers = append(session.answers, question.Options[optionIndex].House)
	session.current++

	if session.current < len(s.questions) {
		next := Step{Question: s.questions[session.current], Index: session.current, Total: len(s.questions)}
		s.mu.Unlock()
		return Advance{Next: &next}, nil
	}

	answers := session.answers
	delete(s.sessions, userID)
	s.mu.Unlock()

	house := s.resolve(answers)
	if s.results != nil {
		if err := s.results.Set(ctx, userID, house.Key); err != nil {
			return Advance{}, err
		}
	}
	s.logger.Info("quiz completed", zap.String("user_id", userID), zap.String("house", string(house.Key)))
	return Advance{House: &house}, nil
}

// Cancel drops the user's session if one exists.
func (s *SessionService) Cancel(userID string) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}

// Count reports active sessions.
func (s *SessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// resolve tallies answers per house and picks the strict maximum. An exact
// tie is broken uniformly at random among the tied houses; with four
// questions over four houses ties are common and the randomness is part of
// the ceremony.
func (s *SessionService) resolve(answers []domain.HouseKey) domain.House {
	counts := make(map[domain.HouseKey]int, len(domain.Houses))
	for _, key := range answers {
		counts[key]++
	}

	best := 0
	for _, n := range counts {
		if n > best {
			best = n
		}
	}

	var tied []domain.HouseKey
	for _, h := range domain.Houses {
		if counts[h.Key] == best {
			tied = append(tied, h.Key)
		}
	}

	winner := tied[0]
	if len(tied) > 1 {
		winner = tied[s.randIntN(len(tied))]
	}
	house, _ := domain.HouseByKey(winner)
	return house
}

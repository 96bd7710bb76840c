package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/repos"
	"github.com/piyingxi/shadowplay-backend/internal/requestdata"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

// QuizPassPoints is awarded the first time a user passes a quiz.
const QuizPassPoints = 10

type QuizQuestionDTO struct {
	ID           uuid.UUID      `json:"id"`
	QuestionText string         `json:"question_text"`
	QuestionType string         `json:"question_type"`
	Position     int            `json:"position"`
	Options      datatypes.JSON `json:"options,omitempty"`
	Points       int            `json:"points"`
}

type QuizDTO struct {
	ID           uuid.UUID         `json:"id"`
	ModuleID     uuid.UUID         `json:"module_id"`
	Title        string            `json:"title"`
	TimeLimit    int               `json:"time_limit,omitempty"`
	PassingScore int               `json:"passing_score"`
	MaxAttempts  int               `json:"max_attempts"`
	AttemptsUsed int               `json:"attempts_used"`
	Questions    []QuizQuestionDTO `json:"questions"`
}

type QuizSubmission struct {
	// Answers maps question id to the submitted value: a string for single
	// choice, an array for multi select.
	Answers   map[uuid.UUID]json.RawMessage `json:"answers" binding:"required"`
	TimeSpent int                           `json:"time_spent"`
}

type QuestionResult struct {
	QuestionID   uuid.UUID      `json:"question_id"`
	IsCorrect    bool           `json:"is_correct"`
	PointsEarned int            `json:"points_earned"`
	Explanation  string         `json:"explanation,omitempty"`
	Correct      datatypes.JSON `json:"correct_answer,omitempty"`
}

type QuizResult struct {
	QuizID        uuid.UUID        `json:"quiz_id"`
	Score         int              `json:"score"`
	Passed        bool             `json:"passed"`
	BestScore     int              `json:"best_score"`
	AttemptsUsed  int              `json:"attempts_used"`
	PointsAwarded int              `json:"points_awarded"`
	LevelledUp    bool             `json:"levelled_up"`
	Results       []QuestionResult `json:"results"`
}

type QuizService interface {
	// GetQuiz returns the quiz with answer keys stripped, rejecting users who
	// exhausted their attempts.
	GetQuiz(ctx context.Context, quizID uuid.UUID) (*QuizDTO, error)
	SubmitQuiz(ctx context.Context, quizID uuid.UUID, submission QuizSubmission) (*QuizResult, error)

	// Admin surface.
	CreateQuiz(ctx context.Context, moduleID uuid.UUID, quiz *types.Quiz, questions []*types.QuizQuestion) (*types.Quiz, error)
}

type quizService struct {
	db           *gorm.DB
	log          *logger.Logger
	quizRepo     repos.QuizRepo
	moduleRepo   repos.LearningModuleRepo
	progressRepo repos.UserProgressRepo
	userRepo     repos.UserRepo
	activity     ActivityService
}

func NewQuizService(
	db *gorm.DB,
	log *logger.Logger,
	quizRepo repos.QuizRepo,
	moduleRepo repos.LearningModuleRepo,
	progressRepo repos.UserProgressRepo,
	userRepo repos.UserRepo,
	activity ActivityService,
) QuizService {
	serviceLog := log.With("service", "QuizService")
	return &quizService{
		db:           db,
		log:          serviceLog,
		quizRepo:     quizRepo,
		moduleRepo:   moduleRepo,
		progressRepo: progressRepo,
		userRepo:     userRepo,
		activity:     activity,
	}
}

func (s *quizService) GetQuiz(ctx context.Context, quizID uuid.UUID) (*QuizDTO, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("login required: %w", ErrUnauthorized)
	}

	quizzes, err := s.quizRepo.GetByIDs(ctx, nil, []uuid.UUID{quizID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quiz: %w", err)
	}
	if len(quizzes) == 0 {
		return nil, fmt.Errorf("quiz %s: %w", quizID, ErrNotFound)
	}
	quiz := quizzes[0]

	progress, err := s.progressRepo.GetByUserAndModule(ctx, nil, rd.UserID, quiz.ModuleID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to fetch progress: %w", err)
	}
	attemptsUsed := 0
	if progress != nil {
		attemptsUsed = progress.QuizAttempts
	}
	if quiz.MaxAttempts > 0 && attemptsUsed >= quiz.MaxAttempts {
		return nil, fmt.Errorf("quiz attempts exhausted: %w", ErrForbidden)
	}

	questions, err := s.quizRepo.GetQuestionsByQuizIDs(ctx, nil, []uuid.UUID{quizID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch questions: %w", err)
	}

	language := requestdata.Language(ctx)
	dto := &QuizDTO{
		ID:           quiz.ID,
		ModuleID:     quiz.ModuleID,
		Title:        pick(language, quiz.Title, quiz.TitleEN),
		TimeLimit:    quiz.TimeLimit,
		PassingScore: quiz.PassingScore,
		MaxAttempts:  quiz.MaxAttempts,
		AttemptsUsed: attemptsUsed,
	}
	for _, q := range questions {
		options := q.Options
		if language == LanguageEN && len(q.OptionsEN) > 0 {
			options = q.OptionsEN
		}
		dto.Questions = append(dto.Questions, QuizQuestionDTO{
			ID:           q.ID,
			QuestionText: pick(language, q.QuestionText, q.QuestionTextEN),
			QuestionType: q.QuestionType,
			Position:     q.Position,
			Options:      options,
			Points:       q.Points,
		})
	}
	return dto, nil
}

func (s *quizService) SubmitQuiz(ctx context.Context, quizID uuid.UUID, submission QuizSubmission) (*QuizResult, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("login required: %w", ErrUnauthorized)
	}
	if len(submission.Answers) == 0 {
		return nil, fmt.Errorf("answers required: %w", ErrValidation)
	}

	var result *QuizResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quizzes, qErr := s.quizRepo.GetByIDs(ctx, tx, []uuid.UUID{quizID})
		if qErr != nil {
			return fmt.Errorf("failed to fetch quiz: %w", qErr)
		}
		if len(quizzes) == 0 {
			return fmt.Errorf("quiz %s: %w", quizID, ErrNotFound)
		}
		quiz := quizzes[0]

		progress, pErr := s.progressRepo.GetByUserAndModule(ctx, tx, rd.UserID, quiz.ModuleID)
		if pErr != nil {
			if errors.Is(pErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("not enrolled in module %s: %w", quiz.ModuleID, ErrNotFound)
			}
			return fmt.Errorf("failed to fetch progress: %w", pErr)
		}
		if quiz.MaxAttempts > 0 && progress.QuizAttempts >= quiz.MaxAttempts {
			return fmt.Errorf("quiz attempts exhausted: %w", ErrForbidden)
		}

		questions, qsErr := s.quizRepo.GetQuestionsByQuizIDs(ctx, tx, []uuid.UUID{quizID})
		if qsErr != nil {
			return fmt.Errorf("failed to fetch questions: %w", qsErr)
		}
		if len(questions) == 0 {
			return fmt.Errorf("quiz %s has no questions: %w", quizID, ErrNotFound)
		}

		now := time.Now()
		totalPoints := 0
		earnedPoints := 0
		answers := make([]*types.QuizAnswer, 0, len(questions))
		results := make([]QuestionResult, 0, len(questions))

		for _, q := range questions {
			totalPoints += q.Points
			raw, answered := submission.Answers[q.ID]

			correct := false
			earned := 0
			if answered {
				correct = answersMatch(q.CorrectAnswer, raw)
				if correct {
					earned = q.Points
					earnedPoints += earned
				}
			}

			var userAnswer datatypes.JSON
			if answered {
				userAnswer = datatypes.JSON(raw)
			}
			answers = append(answers, &types.QuizAnswer{
				ID:           uuid.New(),
				UserID:       rd.UserID,
				QuizID:       quizID,
				QuestionID:   q.ID,
				UserAnswer:   userAnswer,
				IsCorrect:    correct,
				PointsEarned: earned,
				TimeSpent:    submission.TimeSpent,
				AnsweredAt:   now,
			})
			results = append(results, QuestionResult{
				QuestionID:   q.ID,
				IsCorrect:    correct,
				PointsEarned: earned,
				Explanation:  pick(requestdata.Language(ctx), q.Explanation, q.ExplanationEN),
				Correct:      q.CorrectAnswer,
			})
		}

		if _, aErr := s.quizRepo.CreateAnswers(ctx, tx, answers); aErr != nil {
			return fmt.Errorf("failed to store answers: %w", aErr)
		}

		score := 0
		if totalPoints > 0 {
			score = earnedPoints * 100 / totalPoints
		}
		passed := score >= quiz.PassingScore
		firstPass := passed && !progress.QuizPassed

		progress.QuizAttempts++
		if score > progress.BestQuizScore {
			progress.BestQuizScore = score
		}
		if passed {
			progress.QuizPassed = true
		}
		progress.LastAccessed = now
		if uErr := s.progressRepo.Update(ctx, tx, progress); uErr != nil {
			return fmt.Errorf("failed to update progress: %w", uErr)
		}

		pointsAwarded := 0
		levelledUp := false
		if firstPass {
			users, uErr := s.userRepo.GetByIDs(ctx, tx, []uuid.UUID{rd.UserID})
			if uErr != nil {
				return fmt.Errorf("failed to load user for reward: %w", uErr)
			}
			if len(users) > 0 {
				user := users[0]
				levelledUp = user.AddPoints(QuizPassPoints)
				pointsAwarded = QuizPassPoints
				if sErr := s.userRepo.Update(ctx, tx, user); sErr != nil {
					return fmt.Errorf("failed to award quiz points: %w", sErr)
				}
			}
		}

		if s.activity != nil {
			if aErr := s.activity.RecordTx(ctx, tx, rd.UserID, types.ActivityQuizAttempt, map[string]any{
				"quiz_id": quizID.String(),
				"score":   score,
				"passed":  passed,
			}); aErr != nil {
				s.log.Warn("failed to record quiz activity", "quiz_id", quizID, "error", aErr)
			}
		}

		result = &QuizResult{
			QuizID:        quizID,
			Score:         score,
			Passed:        passed,
			BestScore:     progress.BestQuizScore,
			AttemptsUsed:  progress.QuizAttempts,
			PointsAwarded: pointsAwarded,
			LevelledUp:    levelledUp,
			Results:       results,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *quizService) CreateQuiz(ctx context.Context, moduleID uuid.UUID, quiz *types.Quiz, questions []*types.QuizQuestion) (*types.Quiz, error) {
	modules, err := s.moduleRepo.GetByIDs(ctx, nil, []uuid.UUID{moduleID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch module: %w", err)
	}
	if len(modules) == 0 {
		return nil, fmt.Errorf("module %s: %w", moduleID, ErrNotFound)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quiz.ID = uuid.New()
		quiz.ModuleID = moduleID
		if quiz.PassingScore <= 0 {
			quiz.PassingScore = 60
		}
		if quiz.MaxAttempts <= 0 {
			quiz.MaxAttempts = 3
		}
		if _, cErr := s.quizRepo.Create(ctx, tx, []*types.Quiz{quiz}); cErr != nil {
			return fmt.Errorf("failed to create quiz: %w", cErr)
		}
		for i, q := range questions {
			q.ID = uuid.New()
			q.QuizID = quiz.ID
			if q.Position == 0 {
				q.Position = i + 1
			}
			if q.Points <= 0 {
				q.Points = 1
			}
		}
		if _, qErr := s.quizRepo.CreateQuestions(ctx, tx, questions); qErr != nil {
			return fmt.Errorf("failed to create questions: %w", qErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("quiz created", "quiz_id", quiz.ID, "module_id", moduleID, "questions", len(questions))
	return quiz, nil
}

// answersMatch compares a submitted answer against the stored key. Arrays
// compare as sets; everything else compares as trimmed case-insensitive
// strings.
func answersMatch(correct datatypes.JSON, submitted json.RawMessage) bool {
	var want, got any
	if err := json.Unmarshal(correct, &want); err != nil {
		return false
	}
	if err := json.Unmarshal(submitted, &got); err != nil {
		return false
	}

	wantList, wantIsList := want.([]any)
	gotList, gotIsList := got.([]any)
	if wantIsList || gotIsList {
		if !wantIsList || !gotIsList || len(wantList) != len(gotList) {
			return false
		}
		wantSet := make(map[string]struct{}, len(wantList))
		for _, v := range wantList {
			wantSet[canonicalAnswer(v)] = struct{}{}
		}
		for _, v := range gotList {
			if _, ok := wantSet[canonicalAnswer(v)]; !ok {
				return false
			}
		}
		return true
	}
	return canonicalAnswer(want) == canonicalAnswer(got)
}

func canonicalAnswer(v any) string {
	switch t := v.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(t))
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		raw, _ := json.Marshal(t)
		return string(raw)
	}
}

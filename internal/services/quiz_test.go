package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/repos"
	"github.com/piyingxi/shadowplay-backend/internal/requestdata"
	"github.com/piyingxi/shadowplay-backend/internal/testutil"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

func authedCtx(userID uuid.UUID) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{
		UserID:   userID,
		Language: "zh_CN",
	})
}

func newQuizService(t *testing.T, gdb *gorm.DB) QuizService {
	t.Helper()
	log := testutil.Logger(t)
	return NewQuizService(
		gdb,
		log,
		repos.NewQuizRepo(gdb, log),
		repos.NewLearningModuleRepo(gdb, log),
		repos.NewUserProgressRepo(gdb, log),
		repos.NewUserRepo(gdb, log),
		nil,
	)
}

func seedQuiz(t *testing.T, gdb *gorm.DB, moduleID uuid.UUID, passingScore, maxAttempts int) *types.Quiz {
	t.Helper()
	now := time.Now().UTC()
	quiz := &types.Quiz{
		ID:           uuid.New(),
		ModuleID:     moduleID,
		Title:        "quiz",
		PassingScore: passingScore,
		MaxAttempts:  maxAttempts,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := gdb.Create(quiz).Error; err != nil {
		t.Fatalf("failed to seed quiz: %v", err)
	}
	return quiz
}

func seedQuestion(t *testing.T, gdb *gorm.DB, quizID uuid.UUID, position, points int, correct string) *types.QuizQuestion {
	t.Helper()
	q := &types.QuizQuestion{
		ID:            uuid.New(),
		QuizID:        quizID,
		QuestionText:  "q",
		QuestionType:  "multiple_choice",
		Position:      position,
		CorrectAnswer: datatypes.JSON(correct),
		Points:        points,
		CreatedAt:     time.Now().UTC(),
	}
	if err := gdb.Create(q).Error; err != nil {
		t.Fatalf("failed to seed question: %v", err)
	}
	return q
}

func TestAnswersMatch(t *testing.T) {
	cases := []struct {
		name      string
		correct   string
		submitted string
		want      bool
	}{
		{"exact string", `"A"`, `"A"`, true},
		{"case and space insensitive", `"Shadow Puppet"`, `" shadow puppet "`, true},
		{"wrong string", `"A"`, `"B"`, false},
		{"array as set", `["a","b"]`, `["b","a"]`, true},
		{"array missing element", `["a","b"]`, `["a"]`, false},
		{"array extra element", `["a"]`, `["a","b"]`, false},
		{"scalar vs array", `"a"`, `["a"]`, false},
		{"integer forms", `2`, `2`, true},
		{"float normalization", `2.50`, `2.5`, true},
		{"boolean", `true`, `true`, true},
		{"invalid submission", `"a"`, `not-json`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := answersMatch(datatypes.JSON(tc.correct), json.RawMessage(tc.submitted))
			if got != tc.want {
				t.Fatalf("answersMatch(%s, %s) = %v, want %v", tc.correct, tc.submitted, got, tc.want)
			}
		})
	}
}

func TestSubmitQuiz_ScoresAndTracksBest(t *testing.T) {
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, gdb, "student")
	module := testutil.SeedModule(t, gdb, "module-one", 1)
	quiz := seedQuiz(t, gdb, module.ID, 60, 3)
	q1 := seedQuestion(t, gdb, quiz.ID, 1, 1, `"a"`)
	q2 := seedQuestion(t, gdb, quiz.ID, 2, 1, `"b"`)
	testutil.SeedProgress(t, gdb, user.ID, module.ID, 50, false)

	svc := newQuizService(t, gdb)
	ctx := authedCtx(user.ID)

	// Half right fails a 60% passing bar.
	result, err := svc.SubmitQuiz(ctx, quiz.ID, QuizSubmission{Answers: map[uuid.UUID]json.RawMessage{
		q1.ID: json.RawMessage(`"a"`),
		q2.ID: json.RawMessage(`"wrong"`),
	}})
	if err != nil {
		t.Fatalf("SubmitQuiz failed: %v", err)
	}
	if result.Score != 50 || result.Passed {
		t.Fatalf("expected failing score 50, got score=%d passed=%v", result.Score, result.Passed)
	}
	if result.AttemptsUsed != 1 || result.BestScore != 50 {
		t.Fatalf("expected attempts=1 best=50, got attempts=%d best=%d", result.AttemptsUsed, result.BestScore)
	}
	if result.PointsAwarded != 0 {
		t.Fatalf("failing attempt must not award points")
	}

	// All right passes and awards the one-time bonus.
	result, err = svc.SubmitQuiz(ctx, quiz.ID, QuizSubmission{Answers: map[uuid.UUID]json.RawMessage{
		q1.ID: json.RawMessage(`"a"`),
		q2.ID: json.RawMessage(`"b"`),
	}})
	if err != nil {
		t.Fatalf("second SubmitQuiz failed: %v", err)
	}
	if result.Score != 100 || !result.Passed {
		t.Fatalf("expected passing score 100, got score=%d passed=%v", result.Score, result.Passed)
	}
	if result.PointsAwarded != QuizPassPoints {
		t.Fatalf("expected %d points on first pass, got %d", QuizPassPoints, result.PointsAwarded)
	}
	if result.BestScore != 100 || result.AttemptsUsed != 2 {
		t.Fatalf("expected best=100 attempts=2, got best=%d attempts=%d", result.BestScore, result.AttemptsUsed)
	}

	// A later pass never re-awards points.
	result, err = svc.SubmitQuiz(ctx, quiz.ID, QuizSubmission{Answers: map[uuid.UUID]json.RawMessage{
		q1.ID: json.RawMessage(`"a"`),
		q2.ID: json.RawMessage(`"b"`),
	}})
	if err != nil {
		t.Fatalf("third SubmitQuiz failed: %v", err)
	}
	if result.PointsAwarded != 0 {
		t.Fatalf("repeat pass must not award points again, got %d", result.PointsAwarded)
	}

	var stored types.User
	if err := gdb.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if stored.Points != QuizPassPoints {
		t.Fatalf("expected user to hold %d points, got %d", QuizPassPoints, stored.Points)
	}
}

func TestSubmitQuiz_AttemptGate(t *testing.T) {
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, gdb, "student")
	module := testutil.SeedModule(t, gdb, "module-one", 1)
	quiz := seedQuiz(t, gdb, module.ID, 60, 2)
	q1 := seedQuestion(t, gdb, quiz.ID, 1, 1, `"a"`)
	progress := testutil.SeedProgress(t, gdb, user.ID, module.ID, 10, false)
	progress.QuizAttempts = 2
	if err := gdb.Save(progress).Error; err != nil {
		t.Fatalf("failed to exhaust attempts: %v", err)
	}

	svc := newQuizService(t, gdb)
	ctx := authedCtx(user.ID)

	if _, err := svc.GetQuiz(ctx, quiz.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden from GetQuiz, got %v", err)
	}
	_, err := svc.SubmitQuiz(ctx, quiz.ID, QuizSubmission{Answers: map[uuid.UUID]json.RawMessage{
		q1.ID: json.RawMessage(`"a"`),
	}})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden from SubmitQuiz, got %v", err)
	}
}

func TestSubmitQuiz_RequiresEnrollment(t *testing.T) {
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, gdb, "student")
	module := testutil.SeedModule(t, gdb, "module-one", 1)
	quiz := seedQuiz(t, gdb, module.ID, 60, 3)
	q1 := seedQuestion(t, gdb, quiz.ID, 1, 1, `"a"`)

	svc := newQuizService(t, gdb)
	_, err := svc.SubmitQuiz(authedCtx(user.ID), quiz.ID, QuizSubmission{Answers: map[uuid.UUID]json.RawMessage{
		q1.ID: json.RawMessage(`"a"`),
	}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound without enrollment, got %v", err)
	}
}

func TestGetQuiz_RequiresLogin(t *testing.T) {
	gdb := testutil.DB(t)
	svc := newQuizService(t, gdb)
	if _, err := svc.GetQuiz(context.Background(), uuid.New()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/logger"
	"github.com/piyingxi/shadowplay-backend/internal/types"
)

type QuizRepo interface {
	Create(ctx context.Context, tx *gorm.DB, quizzes []*types.Quiz) ([]*types.Quiz, error)
	Update(ctx context.Context, tx *gorm.DB, quiz *types.Quiz) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, quizIDs []uuid.UUID) error
	GetByIDs(ctx context.Context, tx *gorm.DB, quizIDs []uuid.UUID) ([]*types.Quiz, error)
	GetByModuleIDs(ctx context.Context, tx *gorm.DB, moduleIDs []uuid.UUID) ([]*types.Quiz, error)
	CreateQuestions(ctx context.Context, tx *gorm.DB, questions []*types.QuizQuestion) ([]*types.QuizQuestion, error)
	UpdateQuestion(ctx context.Context, tx *gorm.DB, question *types.QuizQuestion) error
	FullDeleteQuestionsByIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) error
	GetQuestionsByQuizIDs(ctx context.Context, tx *gorm.DB, quizIDs []uuid.UUID) ([]*types.QuizQuestion, error)
	CreateAnswers(ctx context.Context, tx *gorm.DB, answers []*types.QuizAnswer) ([]*types.QuizAnswer, error)
	GetAnswersByUserAndQuiz(ctx context.Context, tx *gorm.DB, userID, quizID uuid.UUID) ([]*types.QuizAnswer, error)
}

type quizRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizRepo(db *gorm.DB, baseLog *logger.Logger) QuizRepo {
	return &quizRepo{db: db, log: baseLog.With("repo", "QuizRepo")}
}

func (qr *quizRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return qr.db
}

func (qr *quizRepo) Create(ctx context.Context, tx *gorm.DB, quizzes []*types.Quiz) ([]*types.Quiz, error) {
	if len(quizzes) == 0 {
		return []*types.Quiz{}, nil
	}
	if err := qr.handle(tx).WithContext(ctx).Create(&quizzes).Error; err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (qr *quizRepo) Update(ctx context.Context, tx *gorm.DB, quiz *types.Quiz) error {
	return qr.handle(tx).WithContext(ctx).Save(quiz).Error
}

func (qr *quizRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, quizIDs []uuid.UUID) error {
	if len(quizIDs) == 0 {
		return nil
	}
	return qr.handle(tx).WithContext(ctx).
		Where("id IN ?", quizIDs).
		Delete(&types.Quiz{}).Error
}

func (qr *quizRepo) GetByIDs(ctx context.Context, tx *gorm.DB, quizIDs []uuid.UUID) ([]*types.Quiz, error) {
	var results []*types.Quiz
	if len(quizIDs) == 0 {
		return results, nil
	}
	if err := qr.handle(tx).WithContext(ctx).
		Where("id IN ?", quizIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (qr *quizRepo) GetByModuleIDs(ctx context.Context, tx *gorm.DB, moduleIDs []uuid.UUID) ([]*types.Quiz, error) {
	var results []*types.Quiz
	if len(moduleIDs) == 0 {
		return results, nil
	}
	if err := qr.handle(tx).WithContext(ctx).
		Where("module_id IN ?", moduleIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (qr *quizRepo) CreateQuestions(ctx context.Context, tx *gorm.DB, questions []*types.QuizQuestion) ([]*types.QuizQuestion, error) {
	if len(questions) == 0 {
		return []*types.QuizQuestion{}, nil
	}
	if err := qr.handle(tx).WithContext(ctx).Create(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (qr *quizRepo) UpdateQuestion(ctx context.Context, tx *gorm.DB, question *types.QuizQuestion) error {
	return qr.handle(tx).WithContext(ctx).Save(question).Error
}

func (qr *quizRepo) FullDeleteQuestionsByIDs(ctx context.Context, tx *gorm.DB, questionIDs []uuid.UUID) error {
	if len(questionIDs) == 0 {
		return nil
	}
	return qr.handle(tx).WithContext(ctx).
		Where("id IN ?", questionIDs).
		Delete(&types.QuizQuestion{}).Error
}

func (qr *quizRepo) GetQuestionsByQuizIDs(ctx context.Context, tx *gorm.DB, quizIDs []uuid.UUID) ([]*types.QuizQuestion, error) {
	var results []*types.QuizQuestion
	if len(quizIDs) == 0 {
		return results, nil
	}
	if err := qr.handle(tx).WithContext(ctx).
		Where("quiz_id IN ?", quizIDs).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (qr *quizRepo) CreateAnswers(ctx context.Context, tx *gorm.DB, answers []*types.QuizAnswer) ([]*types.QuizAnswer, error) {
	if len(answers) == 0 {
		return []*types.QuizAnswer{}, nil
	}
	if err := qr.handle(tx).WithContext(ctx).Create(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (qr *quizRepo) GetAnswersByUserAndQuiz(ctx context.Context, tx *gorm.DB, userID, quizID uuid.UUID) ([]*types.QuizAnswer, error) {
	var results []*types.QuizAnswer
	if err := qr.handle(tx).WithContext(ctx).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("answered_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

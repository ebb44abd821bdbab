// Package badge содержит доменную модель бейджей ClassPulse Insight Hub.
// Бейджи - это признание прогресса, мастерства и упорства ученика,
// каждый бейдж несёт числовые доказательства своего присуждения.
package badge

import (
	"fmt"
	"time"

	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE TYPE
// ══════════════════════════════════════════════════════════════════════════════

// BadgeType определяет тип бейджа.
type BadgeType string

const (
	// BadgeTypeProgressStar - заметное улучшение результата по одному заданию.
	BadgeTypeProgressStar BadgeType = "progress_star"

	// BadgeTypeMastery - стабильно высокие результаты по предмету.
	BadgeTypeMastery BadgeType = "mastery_badge"

	// BadgeTypePersistence - завершение задания несмотря на активное
	// использование подсказок.
	BadgeTypePersistence BadgeType = "persistence"
)

// IsValid проверяет корректность типа бейджа.
func (bt BadgeType) IsValid() bool {
	switch bt {
	case BadgeTypeProgressStar, BadgeTypeMastery, BadgeTypePersistence:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление типа.
func (bt BadgeType) String() string {
	return string(bt)
}

// DisplayName возвращает название бейджа для интерфейса учителя.
func (bt BadgeType) DisplayName() string {
	switch bt {
	case BadgeTypeProgressStar:
		return "Progress Star"
	case BadgeTypeMastery:
		return "Mastery Badge"
	case BadgeTypePersistence:
		return "Persistence"
	default:
		return string(bt)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SUGGESTION PRIORITY
// ══════════════════════════════════════════════════════════════════════════════

// SuggestionPriority определяет приоритет предложенного бейджа.
type SuggestionPriority string

const (
	// PriorityHigh - выдающийся результат, показать учителю первым.
	PriorityHigh SuggestionPriority = "high"

	// PriorityMedium - обычное выполнение критериев.
	PriorityMedium SuggestionPriority = "medium"

	// PriorityLow - пограничный случай.
	PriorityLow SuggestionPriority = "low"
)

// IsValid проверяет корректность приоритета.
func (p SuggestionPriority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Weight возвращает числовой вес приоритета для сортировки (больше = важнее).
func (p SuggestionPriority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT BADGE CONTEXT
// Снимок истории ученика, собранный вызывающим слоем перед каждой оценкой.
// Движок не хранит и не мутирует этот снимок.
// ══════════════════════════════════════════════════════════════════════════════

// Attempt представляет только что завершённую попытку задания.
type Attempt struct {
	// AssignmentID - идентификатор задания.
	AssignmentID shared.AssignmentID

	// AssignmentTitle - название задания для текстов причин.
	AssignmentTitle string

	// Subject - предмет задания.
	Subject shared.Subject

	// Score - результат в процентах (0-100).
	Score shared.Score

	// HintRate - доля вопросов с использованием подсказок (0-1).
	HintRate shared.HintRate

	// TimeSpentMin - затраченное время в минутах. nil = телеметрия отсутствует.
	TimeSpentMin *float64

	// QuestionCount - количество вопросов в задании.
	QuestionCount int

	// CompletedAt - момент завершения попытки.
	CompletedAt time.Time
}

// PriorAttempt представляет более раннюю попытку того же задания.
type PriorAttempt struct {
	Score       shared.Score
	CompletedAt time.Time
}

// SubjectAssignment представляет выполненное задание внутри истории предмета.
type SubjectAssignment struct {
	AssignmentID shared.AssignmentID
	Score        shared.Score
	HintRate     shared.HintRate
	CompletedAt  time.Time
}

// SubjectHistory представляет историю работы ученика по одному предмету.
type SubjectHistory struct {
	Subject     shared.Subject
	Assignments []SubjectAssignment
}

// AwardedBadge представляет ранее присуждённый бейдж. Список таких записей -
// вход реестра кулдаунов.
type AwardedBadge struct {
	StudentID    shared.StudentID
	BadgeType    BadgeType
	Subject      shared.Subject      // пусто для бейджей без привязки к предмету
	AssignmentID shared.AssignmentID // пусто для бейджей без привязки к заданию
	AwardedAt    time.Time
}

// StudentBadgeContext - эфемерный снимок для одного вызова оценки критериев.
type StudentBadgeContext struct {
	StudentID   shared.StudentID
	StudentName string

	// CurrentAttempt - только что завершённая попытка. nil, если оценка
	// запускается вне контекста конкретной попытки.
	CurrentAttempt *Attempt

	// PreviousAttempts - прошлые попытки того же самого задания.
	PreviousAttempts []PriorAttempt

	// SubjectHistory - история по предметам для правила мастерства.
	SubjectHistory []SubjectHistory

	// AwardedBadges - ранее выданные бейджи для проверки кулдаунов.
	AwardedBadges []AwardedBadge
}

// ══════════════════════════════════════════════════════════════════════════════
// EVIDENCE
// Числовые доказательства, позволяющие проверить предложение без повторного
// вычисления ("контракт объяснимости").
// ══════════════════════════════════════════════════════════════════════════════

// Evidence содержит числовые поля, специфичные для типа бейджа.
// nil означает, что поле неприменимо к данному типу.
type Evidence struct {
	PreviousScore   *float64 `json:"previous_score,omitempty"`
	CurrentScore    *float64 `json:"current_score,omitempty"`
	Improvement     *float64 `json:"improvement,omitempty"`
	DaysElapsed     *int     `json:"days_elapsed,omitempty"`
	SubjectAverage  *float64 `json:"subject_average,omitempty"`
	AvgHintRate     *float64 `json:"avg_hint_rate,omitempty"`
	AssignmentCount *int     `json:"assignment_count,omitempty"`
	DistinctDays    *int     `json:"distinct_days,omitempty"`
	HintRate        *float64 `json:"hint_rate,omitempty"`
	TimeSpentMin    *float64 `json:"time_spent_min,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGE SUGGESTION
// ══════════════════════════════════════════════════════════════════════════════

// BadgeSuggestion - предложение бейджа на рассмотрение учителю.
// Движок только формирует предложения; присуждение выполняет учитель.
type BadgeSuggestion struct {
	// ID присваивается слоем персистентности, движок оставляет его пустым.
	ID string

	StudentID       shared.StudentID
	BadgeType       BadgeType
	Subject         shared.Subject
	AssignmentID    shared.AssignmentID
	AssignmentTitle string

	// Reason - короткая человекочитаемая причина предложения.
	Reason string

	// Evidence - числовые доказательства для внешней проверки.
	Evidence Evidence

	Priority  SuggestionPriority
	CreatedAt time.Time
}

// Validate проверяет целостность предложения перед сохранением.
func (s *BadgeSuggestion) Validate() error {
	if s.StudentID.IsEmpty() {
		return shared.NewDomainError("badge", "Validate", shared.ErrEmptyValue, "student ID is required")
	}
	if !s.BadgeType.IsValid() {
		return shared.ErrInvalidBadgeType
	}
	if !s.Priority.IsValid() {
		return shared.ErrInvalidPriority
	}
	if s.Reason == "" {
		return shared.NewDomainError("badge", "Validate", shared.ErrEmptyValue, "reason is required")
	}
	return nil
}

// String - отладочное представление предложения.
func (s *BadgeSuggestion) String() string {
	return fmt.Sprintf("BadgeSuggestion{student=%s, type=%s, priority=%s}",
		s.StudentID, s.BadgeType, s.Priority)
}

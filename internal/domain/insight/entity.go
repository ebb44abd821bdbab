// Package insight содержит доменную модель рекомендаций ClassPulse Insight Hub.
// Рекомендация - это сигнал системы о том, что ученик или группа, возможно,
// требует действия учителя. Классификатор внимания решает, какие активные
// рекомендации требуют вмешательства прямо сейчас.
package insight

import (
	"fmt"
	"time"

	"github.com/classpulse/insight-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// Жизненный цикл рекомендации. Статус меняет только вызывающий слой
// (действия учителя), движок читает его на каждом проходе классификации.
// ══════════════════════════════════════════════════════════════════════════════

// Status определяет статус рекомендации.
type Status string

const (
	// StatusActive - кандидат на внимание учителя.
	StatusActive Status = "active"

	// StatusPending - учитель отреагировал, ожидается действие ученика.
	StatusPending Status = "pending"

	// StatusResolved - рекомендация закрыта.
	StatusResolved Status = "resolved"

	// StatusDismissed - рекомендация отклонена учителем.
	StatusDismissed Status = "dismissed"

	// StatusReviewed - рекомендация просмотрена, действий не требуется.
	StatusReviewed Status = "reviewed"
)

// IsValid проверяет корректность статуса.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPending, StatusResolved, StatusDismissed, StatusReviewed:
		return true
	default:
		return false
	}
}

// IsClosed проверяет, что рекомендация больше не актуальна.
func (s Status) IsClosed() bool {
	switch s {
	case StatusResolved, StatusDismissed, StatusReviewed:
		return true
	default:
		return false
	}
}

// CanTransitionTo проверяет допустимость перехода статуса.
func (s Status) CanTransitionTo(target Status) bool {
	if !target.IsValid() || s == target {
		return false
	}
	switch s {
	case StatusActive:
		return true
	case StatusPending:
		return target != StatusActive
	default:
		// Закрытые статусы финальны.
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// INSIGHT TYPE
// ══════════════════════════════════════════════════════════════════════════════

// InsightType определяет категорию инсайта.
type InsightType string

const (
	// InsightCelebrateProgress - празднование прогресса, не требует внимания.
	InsightCelebrateProgress InsightType = "celebrate_progress"

	// InsightChallengeOpportunity - возможность дать более сложное задание.
	InsightChallengeOpportunity InsightType = "challenge_opportunity"

	// InsightCheckIn - предложение поговорить с учеником.
	InsightCheckIn InsightType = "check_in"

	// InsightMonitor - наблюдение без немедленного действия.
	InsightMonitor InsightType = "monitor"
)

// IsValid проверяет корректность типа инсайта.
func (it InsightType) IsValid() bool {
	switch it {
	case InsightCelebrateProgress, InsightChallengeOpportunity, InsightCheckIn, InsightMonitor:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RULE NAME
// ══════════════════════════════════════════════════════════════════════════════

// RuleName определяет правило, породившее рекомендацию.
// Список открытый: неизвестные имена обрабатываются запасной веткой,
// а не отбрасываются.
type RuleName string

const (
	// RuleNeedsSupport - ученику нужна помощь по заданию.
	RuleNeedsSupport RuleName = "needs-support"

	// RuleCheckInSuggested - ученик активно ищет помощь в коуче.
	RuleCheckInSuggested RuleName = "check-in-suggested"

	// RuleGroupSupport - группе учеников нужна помощь.
	RuleGroupSupport RuleName = "group-support"

	// RuleDeveloping - навык формируется; внимание требуется только
	// при эскалации.
	RuleDeveloping RuleName = "developing"

	// RuleNotableImprovement - заметное улучшение, повод для похвалы.
	RuleNotableImprovement RuleName = "notable-improvement"

	// RuleReadyForChallenge - ученик готов к более сложным заданиям.
	RuleReadyForChallenge RuleName = "ready-for-challenge"

	// RuleWatchProgress - наблюдать за динамикой.
	RuleWatchProgress RuleName = "watch-progress"
)

// IsKnown проверяет, известно ли имя правила классификатору.
func (r RuleName) IsKnown() bool {
	switch r {
	case RuleNeedsSupport, RuleCheckInSuggested, RuleGroupSupport, RuleDeveloping,
		RuleNotableImprovement, RuleReadyForChallenge, RuleWatchProgress:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление имени правила.
func (r RuleName) String() string {
	return string(r)
}

// ══════════════════════════════════════════════════════════════════════════════
// SIGNALS
// Структурированные доказательства рекомендации. Известные классификатору
// ключи типизированы, остальное сохраняется в Extra для совместимости вперёд.
// ══════════════════════════════════════════════════════════════════════════════

// Signals содержит числовые и текстовые сигналы рекомендации.
// nil означает, что сигнал отсутствует в исходных данных.
type Signals struct {
	Score                   *float64       `json:"score,omitempty"`
	HintUsageRate           *float64       `json:"hint_usage_rate,omitempty"`
	HelpRequestCount        *int           `json:"help_request_count,omitempty"`
	StudentCount            *int           `json:"student_count,omitempty"`
	IsElevated              *bool          `json:"is_elevated,omitempty"`
	EscalatedFromDeveloping *bool          `json:"escalated_from_developing,omitempty"`
	StudentName             string         `json:"student_name,omitempty"`
	AssignmentTitle         string         `json:"assignment_title,omitempty"`
	ClassName               string         `json:"class_name,omitempty"`
	Extra                   map[string]any `json:"extra,omitempty"`
}

// TriggerData связывает имя правила с его сигналами.
type TriggerData struct {
	RuleName RuleName `json:"rule_name"`
	Signals  Signals  `json:"signals"`
}

// ══════════════════════════════════════════════════════════════════════════════
// RECOMMENDATION
// ══════════════════════════════════════════════════════════════════════════════

// Recommendation представляет сигнал о возможной необходимости действия учителя.
type Recommendation struct {
	// ID - уникальный идентификатор рекомендации.
	ID string

	// Status - текущий статус жизненного цикла.
	Status Status

	// InsightType - категория инсайта.
	InsightType InsightType

	// TriggerData - правило и сигналы, породившие рекомендацию.
	TriggerData TriggerData

	// StudentIDs - один ученик или группа.
	StudentIDs []shared.StudentID

	// AssignmentID - задание, к которому относится рекомендация.
	// Пусто для рекомендаций вне контекста задания.
	AssignmentID shared.AssignmentID

	// Priority - числовой приоритет; больше = важнее.
	Priority int

	// Summary - свободный текст, запасная причина для неизвестных правил.
	Summary string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RuleName возвращает имя правила рекомендации.
func (r *Recommendation) RuleName() RuleName {
	return r.TriggerData.RuleName
}

// Signals возвращает сигналы рекомендации.
func (r *Recommendation) Signals() Signals {
	return r.TriggerData.Signals
}

// HasStudent проверяет, относится ли рекомендация к ученику.
func (r *Recommendation) HasStudent(studentID shared.StudentID) bool {
	for _, id := range r.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// IsGroup проверяет, относится ли рекомендация к группе учеников.
func (r *Recommendation) IsGroup() bool {
	return len(r.StudentIDs) > 1
}

// UpdateStatus выполняет переход статуса. Вызывается только командным слоем.
// Возвращает ErrInvalidTransition при недопустимом переходе.
func (r *Recommendation) UpdateStatus(target Status, now time.Time) error {
	if !r.Status.CanTransitionTo(target) {
		return shared.ErrInvalidTransition
	}
	r.Status = target
	r.UpdatedAt = now
	return nil
}

// Validate проверяет целостность рекомендации перед сохранением.
func (r *Recommendation) Validate() error {
	if r.ID == "" {
		return shared.NewDomainError("insight", "Validate", shared.ErrEmptyValue, "recommendation ID is required")
	}
	if !r.Status.IsValid() {
		return shared.ErrInvalidStatus
	}
	if !r.InsightType.IsValid() {
		return shared.ErrInvalidInsightType
	}
	if len(r.StudentIDs) == 0 {
		return shared.NewDomainError("insight", "Validate", shared.ErrEmptyValue, "at least one student is required")
	}
	return nil
}

// String - отладочное представление рекомендации.
func (r *Recommendation) String() string {
	return fmt.Sprintf("Recommendation{id=%s, rule=%s, status=%s, students=%d}",
		r.ID, r.TriggerData.RuleName, r.Status, len(r.StudentIDs))
}

package insight

import (
	"fmt"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENTION CLASSIFIER
// Единственный источник истины для вопроса "требует ли рекомендация внимания
// прямо сейчас". Все агрегаты строятся поверх этого предиката плюс фильтрации
// по статусу; параллельной логики не существует.
// ══════════════════════════════════════════════════════════════════════════════

// Thresholds содержит именованные пороги классификатора.
type Thresholds struct {
	// NeedsSupportHintRate - доля подсказок, выше которой сигнал
	// "developing" эскалируется.
	NeedsSupportHintRate float64

	// EscalationHelpRequests - количество запросов помощи, начиная
	// с которого сигнал "developing" эскалируется.
	EscalationHelpRequests int
}

// DefaultThresholds возвращает стандартные пороги классификатора.
func DefaultThresholds() Thresholds {
	return Thresholds{
		NeedsSupportHintRate:   0.60,
		EscalationHelpRequests: 3,
	}
}

// Классификация имён правил. Исключение по типу инсайта имеет приоритет
// над включением по имени правила.
var (
	// nonAttentionRules - правила, никогда не требующие внимания.
	nonAttentionRules = map[RuleName]struct{}{
		RuleNotableImprovement: {},
		RuleReadyForChallenge:  {},
		RuleWatchProgress:      {},
	}

	// directAttentionRules - правила, требующие внимания безусловно.
	directAttentionRules = map[RuleName]struct{}{
		RuleNeedsSupport:     {},
		RuleCheckInSuggested: {},
		RuleGroupSupport:     {},
	}

	// excludedInsightTypes - категории, никогда не требующие внимания,
	// даже при статусе active и подходящем имени правила.
	excludedInsightTypes = map[InsightType]struct{}{
		InsightCelebrateProgress:    {},
		InsightChallengeOpportunity: {},
		InsightMonitor:              {},
	}
)

// Classifier классифицирует рекомендации. Не содержит изменяемого состояния,
// безопасен для конкурентного использования.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier создаёт классификатор с заданными порогами.
func NewClassifier(thresholds Thresholds) *Classifier {
	return &Classifier{thresholds: thresholds}
}

// NewDefaultClassifier создаёт классификатор со стандартными порогами.
func NewDefaultClassifier() *Classifier {
	return NewClassifier(DefaultThresholds())
}

// IsAttentionNow решает, требует ли рекомендация немедленного действия учителя.
func (c *Classifier) IsAttentionNow(rec *Recommendation) bool {
	if rec == nil || rec.Status != StatusActive {
		return false
	}

	// Исключение по типу инсайта безусловно и проверяется первым.
	if _, excluded := excludedInsightTypes[rec.InsightType]; excluded {
		return false
	}

	rule := rec.RuleName()
	if _, ok := nonAttentionRules[rule]; ok {
		return false
	}
	if _, ok := directAttentionRules[rule]; ok {
		return true
	}

	if rule == RuleDeveloping {
		return c.isElevatedDeveloping(rec.Signals())
	}

	// Запасная ветка: check_in без явного исключения требует внимания.
	if rec.InsightType == InsightCheckIn {
		return true
	}

	return false
}

// isElevatedDeveloping применяет тест эскалации к сигналу "developing".
func (c *Classifier) isElevatedDeveloping(sig Signals) bool {
	if sig.IsElevated != nil && *sig.IsElevated {
		return true
	}
	if sig.EscalatedFromDeveloping != nil && *sig.EscalatedFromDeveloping {
		return true
	}
	if sig.HintUsageRate != nil && *sig.HintUsageRate > c.thresholds.NeedsSupportHintRate {
		return true
	}
	if sig.HelpRequestCount != nil && *sig.HelpRequestCount >= c.thresholds.EscalationHelpRequests {
		return true
	}
	return false
}

// AttentionReason возвращает короткую, ориентированную на проблему причину
// для интерфейса учителя. Для неизвестных правил используется собственное
// описание рекомендации.
func (c *Classifier) AttentionReason(rec *Recommendation) string {
	if rec == nil {
		return ""
	}
	sig := rec.Signals()

	switch rec.RuleName() {
	case RuleNeedsSupport:
		title := assignmentLabel(sig)
		if sig.Score != nil {
			return fmt.Sprintf("Needs support on %s (%.0f%%)", title, *sig.Score)
		}
		return fmt.Sprintf("Needs support on %s", title)

	case RuleGroupSupport:
		count := len(rec.StudentIDs)
		if sig.StudentCount != nil {
			count = *sig.StudentCount
		}
		return fmt.Sprintf("Group needs support (%d students)", count)

	case RuleCheckInSuggested:
		return "Check-in suggested: seeking help in coach"

	case RuleDeveloping:
		if sig.HelpRequestCount != nil && *sig.HelpRequestCount >= c.thresholds.EscalationHelpRequests {
			return fmt.Sprintf("Asked for help %d times on %s", *sig.HelpRequestCount, assignmentLabel(sig))
		}
		if sig.HintUsageRate != nil && *sig.HintUsageRate > c.thresholds.NeedsSupportHintRate {
			return fmt.Sprintf("Heavy hint use on %s (%.0f%%)", assignmentLabel(sig), *sig.HintUsageRate*100)
		}
		return fmt.Sprintf("Developing skills on %s", assignmentLabel(sig))

	default:
		return rec.Summary
	}
}

// assignmentLabel возвращает название задания из сигналов или нейтральную
// подпись, если его нет.
func assignmentLabel(sig Signals) string {
	if sig.AssignmentTitle != "" {
		return sig.AssignmentTitle
	}
	return "this assignment"
}

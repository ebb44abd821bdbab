package badge

import (
	"fmt"
	"time"

	"github.com/classpulse/insight-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE CRITERIA
// Три независимых правила (Progress, Mastery, Persistence), каждое из которых
// по снимку StudentBadgeContext либо формирует одно предложение, либо молчит.
// Ошибок не существует: недостаток данных означает "не подходит в этот раз".
// ══════════════════════════════════════════════════════════════════════════════

// Criteria содержит именованные пороги всех правил. Пороги - чистая
// конфигурация и никогда не должны появляться в коде правил литералами.
type Criteria struct {
	// Progress: улучшение результата по одному заданию.
	MinImprovement     float64 // минимальный прирост к самой ранней попытке
	HighImprovement    float64 // прирост для приоритета high
	MinProgressScore   float64 // минимальный текущий результат
	MaxProgressWindow  int     // максимум дней с самой ранней попытки

	// Mastery: стабильное мастерство по предмету.
	MinMasteryAssignments  int     // минимум заданий по предмету
	MinMasteryAvgScore     float64 // минимальный средний результат
	HighMasteryAvgScore    float64 // средний результат для приоритета high
	MaxMasteryHintRate     float64 // максимальная средняя доля подсказок
	MinMasteryDistinctDays int     // минимум различных календарных дней

	// Persistence: завершение несмотря на активную помощь.
	MinPersistenceHintRate float64 // минимальная доля подсказок
	MinPersistenceScore    float64 // минимальный результат
	HighPersistenceScore   float64 // результат для приоритета high
	MinPersistenceTimeMin  float64 // минимум минут, если телеметрия есть
}

// DefaultCriteria возвращает стандартные пороги правил.
func DefaultCriteria() Criteria {
	return Criteria{
		MinImprovement:    20,
		HighImprovement:   30,
		MinProgressScore:  60,
		MaxProgressWindow: 30,

		MinMasteryAssignments:  3,
		MinMasteryAvgScore:     85,
		HighMasteryAvgScore:    90,
		MaxMasteryHintRate:     0.20,
		MinMasteryDistinctDays: 2,

		MinPersistenceHintRate: 0.60,
		MinPersistenceScore:    50,
		HighPersistenceScore:   70,
		MinPersistenceTimeMin:  10,
	}
}

// Evaluator применяет правила к снимку ученика. Не содержит изменяемого
// состояния, безопасен для конкурентного использования.
type Evaluator struct {
	criteria Criteria
	policy   CooldownPolicy
}

// NewEvaluator создаёт оценщик с заданными порогами и политикой кулдаунов.
func NewEvaluator(criteria Criteria, policy CooldownPolicy) *Evaluator {
	return &Evaluator{criteria: criteria, policy: policy}
}

// NewDefaultEvaluator создаёт оценщик со стандартной конфигурацией.
func NewDefaultEvaluator() *Evaluator {
	return NewEvaluator(DefaultCriteria(), DefaultCooldownPolicy())
}

// Evaluate запускает все три правила и возвращает ненулевые результаты
// (от нуля до трёх предложений за вызов). Порядок правил не влияет на
// результат: правила независимы.
func (e *Evaluator) Evaluate(sctx StudentBadgeContext, now time.Time) []BadgeSuggestion {
	ledger := NewLedger(e.policy, sctx.AwardedBadges)

	suggestions := make([]BadgeSuggestion, 0, 3)
	if s := e.evaluateProgress(sctx, ledger, now); s != nil {
		suggestions = append(suggestions, *s)
	}
	if s := e.evaluateMastery(sctx, ledger, now); s != nil {
		suggestions = append(suggestions, *s)
	}
	if s := e.evaluatePersistence(sctx, ledger, now); s != nil {
		suggestions = append(suggestions, *s)
	}
	return suggestions
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS RULE
// ══════════════════════════════════════════════════════════════════════════════

// evaluateProgress проверяет заметное улучшение по одному заданию.
// Сравнение идёт с САМОЙ РАННЕЙ попыткой: правило награждает устойчивый
// рост от первого подхода, а не колебания между соседними попытками.
func (e *Evaluator) evaluateProgress(sctx StudentBadgeContext, ledger *Ledger, now time.Time) *BadgeSuggestion {
	cur := sctx.CurrentAttempt
	if cur == nil || len(sctx.PreviousAttempts) == 0 {
		return nil
	}

	earliest := sctx.PreviousAttempts[0]
	for _, a := range sctx.PreviousAttempts[1:] {
		if a.CompletedAt.Before(earliest.CompletedAt) {
			earliest = a
		}
	}

	improvement := cur.Score.Float64() - earliest.Score.Float64()
	if improvement < e.criteria.MinImprovement {
		return nil
	}
	if cur.Score.Float64() < e.criteria.MinProgressScore {
		return nil
	}

	elapsed := timeutil.DaysBetween(earliest.CompletedAt, cur.CompletedAt)
	if elapsed > e.criteria.MaxProgressWindow {
		return nil
	}

	if ledger.ProgressSuppressed(cur.AssignmentID.String(), cur.Subject.String(), now) {
		return nil
	}

	priority := PriorityMedium
	if improvement >= e.criteria.HighImprovement {
		priority = PriorityHigh
	}

	prevScore := earliest.Score.Float64()
	curScore := cur.Score.Float64()
	return &BadgeSuggestion{
		StudentID:       sctx.StudentID,
		BadgeType:       BadgeTypeProgressStar,
		Subject:         cur.Subject,
		AssignmentID:    cur.AssignmentID,
		AssignmentTitle: cur.AssignmentTitle,
		Reason: fmt.Sprintf("Improved from %.0f%% to %.0f%% on %s",
			prevScore, curScore, cur.AssignmentTitle),
		Evidence: Evidence{
			PreviousScore: &prevScore,
			CurrentScore:  &curScore,
			Improvement:   &improvement,
			DaysElapsed:   &elapsed,
		},
		Priority:  priority,
		CreatedAt: now,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MASTERY RULE
// ══════════════════════════════════════════════════════════════════════════════

// evaluateMastery ищет предмет со стабильно высокими результатами.
// Если подходит несколько предметов, возвращается ровно один: кандидаты с
// приоритетом high идут раньше medium, при равенстве сохраняется порядок
// появления во входных данных.
func (e *Evaluator) evaluateMastery(sctx StudentBadgeContext, ledger *Ledger, now time.Time) *BadgeSuggestion {
	var candidates []BadgeSuggestion

	for _, hist := range sctx.SubjectHistory {
		if len(hist.Assignments) < e.criteria.MinMasteryAssignments {
			continue
		}

		var scoreSum, hintSum float64
		times := make([]time.Time, 0, len(hist.Assignments))
		for _, a := range hist.Assignments {
			scoreSum += a.Score.Float64()
			hintSum += a.HintRate.Float64()
			times = append(times, a.CompletedAt)
		}
		n := float64(len(hist.Assignments))
		avgScore := scoreSum / n
		avgHint := hintSum / n
		days := timeutil.DistinctDays(times)

		if avgScore < e.criteria.MinMasteryAvgScore {
			continue
		}
		if avgHint > e.criteria.MaxMasteryHintRate {
			continue
		}
		if days < e.criteria.MinMasteryDistinctDays {
			continue
		}
		if ledger.MasterySuppressed(hist.Subject.String(), now) {
			continue
		}

		priority := PriorityMedium
		if avgScore >= e.criteria.HighMasteryAvgScore {
			priority = PriorityHigh
		}

		count := len(hist.Assignments)
		avgScoreCopy, avgHintCopy, daysCopy := avgScore, avgHint, days
		candidates = append(candidates, BadgeSuggestion{
			StudentID: sctx.StudentID,
			BadgeType: BadgeTypeMastery,
			Subject:   hist.Subject,
			Reason: fmt.Sprintf("Averaging %.0f%% in %s across %d assignments",
				avgScore, hist.Subject, count),
			Evidence: Evidence{
				SubjectAverage:  &avgScoreCopy,
				AvgHintRate:     &avgHintCopy,
				AssignmentCount: &count,
				DistinctDays:    &daysCopy,
			},
			Priority:  priority,
			CreatedAt: now,
		})
	}

	if len(candidates) == 0 {
		return nil
	}

	// Первый high-кандидат, иначе первый в порядке входа.
	for i := range candidates {
		if candidates[i].Priority == PriorityHigh {
			return &candidates[i]
		}
	}
	return &candidates[0]
}

// ══════════════════════════════════════════════════════════════════════════════
// PERSISTENCE RULE
// ══════════════════════════════════════════════════════════════════════════════

// evaluatePersistence награждает завершение задания несмотря на активное
// использование подсказок. Отсутствие телеметрии времени не штрафуется:
// проверка минимального времени применяется только если данные есть.
func (e *Evaluator) evaluatePersistence(sctx StudentBadgeContext, ledger *Ledger, now time.Time) *BadgeSuggestion {
	cur := sctx.CurrentAttempt
	if cur == nil {
		return nil
	}

	if cur.HintRate.Float64() < e.criteria.MinPersistenceHintRate {
		return nil
	}
	if cur.Score.Float64() < e.criteria.MinPersistenceScore {
		return nil
	}
	if cur.TimeSpentMin != nil && *cur.TimeSpentMin < e.criteria.MinPersistenceTimeMin {
		return nil
	}

	if ledger.PersistenceSuppressed(now) {
		return nil
	}

	priority := PriorityMedium
	if cur.Score.Float64() >= e.criteria.HighPersistenceScore {
		priority = PriorityHigh
	}

	hintRate := cur.HintRate.Float64()
	curScore := cur.Score.Float64()
	evidence := Evidence{
		HintRate:     &hintRate,
		CurrentScore: &curScore,
	}
	if cur.TimeSpentMin != nil {
		t := *cur.TimeSpentMin
		evidence.TimeSpentMin = &t
	}

	return &BadgeSuggestion{
		StudentID:       sctx.StudentID,
		BadgeType:       BadgeTypePersistence,
		Subject:         cur.Subject,
		AssignmentID:    cur.AssignmentID,
		AssignmentTitle: cur.AssignmentTitle,
		Reason: fmt.Sprintf("Worked through %s with coaching support and scored %.0f%%",
			cur.AssignmentTitle, curScore),
		Evidence:  evidence,
		Priority:  priority,
		CreatedAt: now,
	}
}

package badge

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// COOLDOWN LEDGER
// Реестр кулдаунов отвечает на вопрос: подавлен ли сейчас кандидат
// (тип бейджа + предмет + задание) историей ранее выданных бейджей.
// Кулдауны защищают учеников и учителей от усталости повторных уведомлений.
// ══════════════════════════════════════════════════════════════════════════════

// CooldownDays - длительность окна подавления в днях.
type CooldownDays int

// CooldownForever обозначает вечное подавление ("не более одного раза").
const CooldownForever CooldownDays = -1

// IsForever проверяет, является ли окно вечным.
func (d CooldownDays) IsForever() bool {
	return d < 0
}

// CooldownPolicy задаёт окна подавления для каждого типа бейджа.
// Это конфигурация, а не глобальное состояние: политика создаётся один раз
// и передаётся в оценщик явно.
type CooldownPolicy struct {
	// ProgressPerAssignment - окно Progress для того же задания.
	// По умолчанию вечное: не более одного Progress-бейджа на задание.
	ProgressPerAssignment CooldownDays

	// ProgressPerSubject - окно Progress внутри одного предмета.
	ProgressPerSubject CooldownDays

	// MasteryPerSubject - окно Mastery внутри одного предмета.
	MasteryPerSubject CooldownDays

	// PersistencePerStudent - окно Persistence для ученика целиком,
	// без привязки к предмету.
	PersistencePerStudent CooldownDays
}

// DefaultCooldownPolicy возвращает стандартные окна подавления.
func DefaultCooldownPolicy() CooldownPolicy {
	return CooldownPolicy{
		ProgressPerAssignment: CooldownForever,
		ProgressPerSubject:    14,
		MasteryPerSubject:     30,
		PersistencePerStudent: 14,
	}
}

// TunedCooldownPolicy возвращает стандартную политику с переопределёнными
// окнами. Нулевые и отрицательные значения оставляют стандартное окно;
// вечное окно Progress на задание не переопределяется.
func TunedCooldownPolicy(progressDays, masteryDays, persistenceDays int) CooldownPolicy {
	policy := DefaultCooldownPolicy()
	if progressDays > 0 {
		policy.ProgressPerSubject = CooldownDays(progressDays)
	}
	if masteryDays > 0 {
		policy.MasteryPerSubject = CooldownDays(masteryDays)
	}
	if persistenceDays > 0 {
		policy.PersistencePerStudent = CooldownDays(persistenceDays)
	}
	return policy
}

// IsWithinCooldown проверяет, находится ли момент now внутри окна подавления,
// начавшегося в issuedAt. Вечное окно подавляет всегда.
func IsWithinCooldown(issuedAt time.Time, cooldown CooldownDays, now time.Time) bool {
	if cooldown.IsForever() {
		return true
	}
	return now.Sub(issuedAt) < time.Duration(cooldown)*24*time.Hour
}

// Ledger - реестр кулдаунов поверх истории выданных бейджей ученика.
// Пустая история означает, что ничего не подавлено.
type Ledger struct {
	policy CooldownPolicy
	badges []AwardedBadge
}

// NewLedger создаёт реестр для истории бейджей одного ученика.
func NewLedger(policy CooldownPolicy, badges []AwardedBadge) *Ledger {
	return &Ledger{policy: policy, badges: badges}
}

// ProgressSuppressed проверяет подавление Progress-бейджа для задания и предмета.
func (l *Ledger) ProgressSuppressed(assignmentID, subject string, now time.Time) bool {
	for _, b := range l.badges {
		if b.BadgeType != BadgeTypeProgressStar {
			continue
		}
		if assignmentID != "" && b.AssignmentID.String() == assignmentID &&
			IsWithinCooldown(b.AwardedAt, l.policy.ProgressPerAssignment, now) {
			return true
		}
		if subject != "" && b.Subject.String() == subject &&
			IsWithinCooldown(b.AwardedAt, l.policy.ProgressPerSubject, now) {
			return true
		}
	}
	return false
}

// MasterySuppressed проверяет подавление Mastery-бейджа для предмета.
func (l *Ledger) MasterySuppressed(subject string, now time.Time) bool {
	for _, b := range l.badges {
		if b.BadgeType != BadgeTypeMastery {
			continue
		}
		if b.Subject.String() == subject &&
			IsWithinCooldown(b.AwardedAt, l.policy.MasteryPerSubject, now) {
			return true
		}
	}
	return false
}

// PersistenceSuppressed проверяет подавление Persistence-бейджа для ученика.
// Окно глобальное: любой Persistence-бейдж ученика запускает его.
func (l *Ledger) PersistenceSuppressed(now time.Time) bool {
	for _, b := range l.badges {
		if b.BadgeType != BadgeTypePersistence {
			continue
		}
		if IsWithinCooldown(b.AwardedAt, l.policy.PersistencePerStudent, now) {
			return true
		}
	}
	return false
}

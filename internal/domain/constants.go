package domain

// DateOrderPolicy политика проверки порядка дат при расчете доступности
type DateOrderPolicy string

const (
	// DateOrderStrict перевернутый диапазон отклоняется как некорректный аргумент
	DateOrderStrict DateOrderPolicy = "strict"
	// DateOrderPassthrough перевернутый диапазон передается в запрос как есть (совместимость со старыми клиентами)
	DateOrderPassthrough DateOrderPolicy = "passthrough"
)

// IsValid returns true if the policy is known
func (p DateOrderPolicy) IsValid() bool {
	return p == DateOrderStrict || p == DateOrderPassthrough
}

// ReservationConsistency уровень строгости при создании бронирования
type ReservationConsistency string

const (
	// ConsistencyCheckThenCreate проверка доступности и вставка - две независимые операции (допускает гонку)
	ConsistencyCheckThenCreate ReservationConsistency = "check_then_create"
	// ConsistencyTransactional проверка и вставка в одной сериализуемой транзакции с блокировкой товара
	ConsistencyTransactional ReservationConsistency = "transactional"
)

// IsValid returns true if the consistency level is known
func (c ReservationConsistency) IsValid() bool {
	return c == ConsistencyCheckThenCreate || c == ConsistencyTransactional
}

// Default configuration values
const (
	DefaultDateOrderPolicy        = DateOrderStrict
	DefaultReservationConsistency = ConsistencyTransactional
)

// Business validation constants
const (
	MaxLinesPerReservation = 100
	MaxNotesLength         = 1000
	MaxQuantityPerLine     = 100000
)

// Time format constants
const (
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// BlockingStatuses статусы, позиции которых занимают остаток
var BlockingStatuses = []ReservationStatus{
	StatusPending,
	StatusConfirmed,
	StatusCompleted,
}

// AllStatuses список всех известных статусов бронирования
var AllStatuses = []ReservationStatus{
	StatusPending,
	StatusConfirmed,
	StatusCompleted,
	StatusCancelled,
}

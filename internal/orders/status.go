package orders

type Status string

const (
	StatusUnpaid Status = "unpaid"
	StatusPaid   Status = "paid"
)

var validNext = map[Status]map[Status]bool{
	StatusUnpaid: {StatusPaid: true},
	StatusPaid:   {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

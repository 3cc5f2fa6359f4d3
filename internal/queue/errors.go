package queue

import "errors"

var (
	// ErrNotFound возвращается, если помещения с таким номером нет в таблице очередей.
	ErrNotFound = errors.New("queue not found")
	// ErrInvalidArgument возвращается при отрицательных значениях очереди или времени ожидания.
	ErrInvalidArgument = errors.New("invalid argument")
)

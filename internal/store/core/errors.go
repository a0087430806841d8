package core

import "errors"

var (
	// ErrNotFound: el id pedido no tiene registro. Siempre se devuelve como
	// ausencia explícita, nunca como panic.
	ErrNotFound = errors.New("key not found")
	// ErrStorage: el medio de persistencia no pudo completar una lectura o
	// escritura. El core no reintenta; lo superficia tal cual.
	ErrStorage = errors.New("storage failure")
)

package inmemdb

import (
	"sync"

	"github.com/trezcool/idview/core/session"
)

type (
	DB struct {
		session *sessionTable
	}

	sessionTable struct {
		table map[string]*session.Session
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		session: &sessionTable{table: make(map[string]*session.Session)},
	}
}

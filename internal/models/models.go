package models

// All lists every table, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Quiz{},
		&Question{},
		&Answer{},
		&Session{},
		&Participant{},
		&Response{},
		&SessionEvent{},
	}
}

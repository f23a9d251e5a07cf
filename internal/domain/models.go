package domain

// Models lists every persisted record set, in migration order.
func Models() []interface{} {
	return []interface{}{
		&Asset{},
		&Request{},
		&Assignment{},
		&Affiliation{},
		&RestockTask{},
	}
}

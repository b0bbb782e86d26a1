package users

// Repository keeps operator records in memory in insertion order.
// Accounts do not survive a restart.
type Repository struct {
	records []operatorRecord
}

// NewRepository creates an empty operator repository
func NewRepository() *Repository {
	return &Repository{}
}

// Get returns the record for username.
func (r *Repository) Get(username string) (operatorRecord, bool) {
	for _, rec := range r.records {
		if rec.Username == username {
			return rec, true
		}
	}
	return operatorRecord{}, false
}

// Put inserts or replaces a record.
func (r *Repository) Put(rec operatorRecord) {
	for i := range r.records {
		if r.records[i].Username == rec.Username {
			r.records[i] = rec
			return
		}
	}
	r.records = append(r.records, rec)
}

// Delete removes username and reports whether it existed.
func (r *Repository) Delete(username string) bool {
	for i, rec := range r.records {
		if rec.Username == username {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Repository) Len() int {
	return len(r.records)
}

// Usernames lists operators in insertion order.
func (r *Repository) Usernames() []string {
	out := make([]string, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Username)
	}
	return out
}

func (r *Repository) Clear() {
	r.records = nil
}

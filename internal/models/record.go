package models

// RecordID methods let repositories store any entity generically.

func (u User) RecordID() string                 { return u.ID }
func (v Vehicle) RecordID() string              { return v.ID }
func (i Inquiry) RecordID() string              { return i.ID }
func (t Transaction) RecordID() string          { return t.ID }
func (a Allocation) RecordID() string           { return a.ID }
func (t TestDrive) RecordID() string            { return t.ID }
func (v ViewingBooking) RecordID() string       { return v.ID }
func (s AgentSale) RecordID() string            { return s.ID }
func (q QuoteRequest) RecordID() string         { return q.ID }
func (a AgentApplication) RecordID() string     { return a.ID }
func (f FinancingApplication) RecordID() string { return f.ID }

package model

// Table is a dining table.  ReservationID is set while a party is seated
// at it and nil when the table is free.
type Table struct {
    ID            uint64  `json:"table_id"`
    TableName     string  `json:"table_name"`
    Capacity      int     `json:"capacity"`
    ReservationID *uint64 `json:"reservation_id"`
}

// Occupied reports whether a reservation is currently seated at the table.
func (t Table) Occupied() bool {
    return t.ReservationID != nil
}

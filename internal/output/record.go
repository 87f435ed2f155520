package output

// Columns is the fixed column order of the output table.
var Columns = []string{
	"name",
	"website",
	"phone",
	"address",
	"reviews",
	"latitude",
	"longitude",
	"email",
	"maps_url",
}

// Record is one persisted row.
type Record struct {
	Name      string `json:"name"`
	Website   string `json:"website"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Reviews   string `json:"reviews"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Email     string `json:"email"`
	MapsURL   string `json:"maps_url"`
}

// Fields returns the values in column order.
func (r *Record) Fields() []string {
	return []string{
		r.Name,
		r.Website,
		r.Phone,
		r.Address,
		r.Reviews,
		r.Latitude,
		r.Longitude,
		r.Email,
		r.MapsURL,
	}
}

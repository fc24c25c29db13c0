package mailer

const BookingConfirmedTemplate = "booking_confirmed.tmpl"

type Mailer interface {
	Send(recipient, templateFile string, data any) error
}

// BookingConfirmedData feeds BookingConfirmedTemplate.
type BookingConfirmedData struct {
	CustomerName string
	MovieTitle   string
	RoomName     string
	StartTime    string
	Seats        []string
	TotalPrice   string
	Reference    string
}

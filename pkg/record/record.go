// Package record produces the fake values written into generated files.
package record

import (
	"github.com/brianvoe/gofakeit/v6"
)

const (
	minNoteWords = 4
	maxNoteWords = 24
)

// Columns is the fixed header of every generated file.
var Columns = []string{"name", "phone", "address", "city", "state", "zip", "notes"}

// Record is one generated row.
type Record struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Notes   string `json:"notes"`
}

// Fields returns the values in column order.
func (r Record) Fields() []string {
	return []string{r.Name, r.Phone, r.Address, r.City, r.State, r.Zip, r.Notes}
}

// Producer supplies a freshly generated record on every call.
type Producer interface {
	Record() Record
}

// Faker is a Producer backed by gofakeit.
type Faker struct {
	faker *gofakeit.Faker
}

// NewFaker returns a Faker seeded with seed. A zero seed is replaced by a random one.
func NewFaker(seed int64) *Faker {
	return &Faker{faker: gofakeit.New(seed)}
}

// Record implements Producer.
func (f *Faker) Record() Record {
	return Record{
		Name:    f.faker.Name(),
		Phone:   f.faker.PhoneFormatted(),
		Address: f.faker.Street(),
		City:    f.faker.City(),
		State:   f.faker.StateAbr(),
		Zip:     f.faker.Zip(),
		Notes:   f.faker.Sentence(f.faker.Number(minNoteWords, maxNoteWords)),
	}
}

// Static is a Producer that always returns the same record.
type Static Record

// Record implements Producer.
func (s Static) Record() Record {
	return Record(s)
}

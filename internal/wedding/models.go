// Package wedding holds the tracked entity kinds and the flows that emit
// named activity events. The models carry only the fields the activity log
// needs to exercise change capture.
package wedding

import (
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	KindUser    = "user"
	KindWedding = "wedding"
	KindOrder   = "order"
	KindGuest   = "guest"
)

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	Name         string
	Role         string `gorm:"not null;default:customer"`
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// SetPassword stores a bcrypt hash of plain.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

func (u *User) ActivityKind() string { return KindUser }
func (u *User) ActivityID() string   { return formatID(u.ID) }

func (u *User) ActivityAttributes() map[string]any {
	return map[string]any{
		"email":         u.Email,
		"name":          u.Name,
		"role":          u.Role,
		"password_hash": u.PasswordHash,
		"created_at":    u.CreatedAt,
		"updated_at":    u.UpdatedAt,
	}
}

type Wedding struct {
	ID          uint   `gorm:"primaryKey"`
	OwnerID     uint   `gorm:"index"`
	Slug        string `gorm:"uniqueIndex"`
	Title       string
	Venue       string
	EventDate   time.Time
	Story       string
	IsPublished bool
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (w *Wedding) ActivityKind() string { return KindWedding }
func (w *Wedding) ActivityID() string   { return formatID(w.ID) }

func (w *Wedding) ActivityAttributes() map[string]any {
	return map[string]any{
		"owner_id":     w.OwnerID,
		"slug":         w.Slug,
		"title":        w.Title,
		"venue":        w.Venue,
		"event_date":   w.EventDate,
		"story":        w.Story,
		"is_published": w.IsPublished,
		"published_at": w.PublishedAt,
		"created_at":   w.CreatedAt,
		"updated_at":   w.UpdatedAt,
	}
}

type Order struct {
	ID        uint `gorm:"primaryKey"`
	WeddingID uint `gorm:"index"`
	UserID    uint `gorm:"index"`
	Package   string
	Amount    int64
	Status    string `gorm:"not null;default:pending"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (o *Order) ActivityKind() string { return KindOrder }
func (o *Order) ActivityID() string   { return formatID(o.ID) }

func (o *Order) ActivityAttributes() map[string]any {
	return map[string]any{
		"wedding_id": o.WeddingID,
		"user_id":    o.UserID,
		"package":    o.Package,
		"amount":     o.Amount,
		"status":     o.Status,
		"created_at": o.CreatedAt,
		"updated_at": o.UpdatedAt,
	}
}

type Guest struct {
	ID        uint `gorm:"primaryKey"`
	WeddingID uint `gorm:"index"`
	Name      string
	RSVP      string
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (g *Guest) ActivityKind() string { return KindGuest }
func (g *Guest) ActivityID() string   { return formatID(g.ID) }

func (g *Guest) ActivityAttributes() map[string]any {
	return map[string]any{
		"wedding_id": g.WeddingID,
		"name":       g.Name,
		"rsvp":       g.RSVP,
		"message":    g.Message,
		"created_at": g.CreatedAt,
		"updated_at": g.UpdatedAt,
	}
}

// Models lists every tracked kind for migrations in tests and tooling.
func Models() []any {
	return []any{&User{}, &Wedding{}, &Order{}, &Guest{}}
}

func formatID(id uint) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(id), 10)
}

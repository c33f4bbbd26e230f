package models

// Category is the fixed browse taxonomy for listings, seeded at startup.
// Products reference a category by slug rather than by row ID so listings
// keep their category label even if the taxonomy is reseeded.
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;not null;unique" json:"name"`
	Slug string `gorm:"size:100;not null;unique" json:"slug"`
}

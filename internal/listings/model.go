package listings

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// ID is the listing identifier: a UUID stored as a BSON binary (subtype 4) by
// the crawler.
type ID struct {
	uuid.UUID
}

// ParseID validates a client-supplied listing identifier.
func ParseID(raw string) (ID, error) {
	u, err := uuid.Parse(raw)
	if err != nil {
		return ID{}, err
	}
	return ID{UUID: u}, nil
}

func (id ID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(primitive.Binary{
		Subtype: bsontype.BinaryUUID,
		Data:    id.UUID[:],
	})
}

func (id *ID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t != bsontype.Binary {
		return fmt.Errorf("listing id: expected binary, got %s", t)
	}
	subtype, bin, _, ok := bsoncore.ReadBinary(data)
	if !ok {
		return fmt.Errorf("listing id: malformed binary value")
	}
	if len(bin) != 16 {
		return fmt.Errorf("listing id: unexpected binary length %d (subtype %d)", len(bin), subtype)
	}
	copy(id.UUID[:], bin)
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.UUID.String() + `"`), nil
}

// BinaryValue returns the raw BSON form used in _id filters.
func (id ID) BinaryValue() primitive.Binary {
	return primitive.Binary{Subtype: bsontype.BinaryUUID, Data: id.UUID[:]}
}

// Listing mirrors a crawled property document. Field names keep the crawler's
// spaced keys so documents round-trip unchanged.
type Listing struct {
	ID               ID        `bson:"_id" json:"_id"`
	Prefecture       string    `bson:"Prefecture,omitempty" json:"Prefecture,omitempty"`
	Layout           string    `bson:"Building - Layout,omitempty" json:"Building - Layout,omitempty"`
	SalePrice        *float64  `bson:"Sale Price,omitempty" json:"Sale Price,omitempty"`
	Link             string    `bson:"link,omitempty" json:"link,omitempty"`
	BuildingArea     string    `bson:"Building - Area,omitempty" json:"Building - Area,omitempty"`
	LandArea         string    `bson:"Land - Area,omitempty" json:"Land - Area,omitempty"`
	ConstructionDate string    `bson:"Building - Construction Date,omitempty" json:"Building - Construction Date,omitempty"`
	Structure        string    `bson:"Building - Structure,omitempty" json:"Building - Structure,omitempty"`
	PropertyType     string    `bson:"Property Type,omitempty" json:"Property Type,omitempty"`
	Location         string    `bson:"Property Location,omitempty" json:"Property Location,omitempty"`
	Transportation   string    `bson:"Transportation,omitempty" json:"Transportation,omitempty"`
	CreatedAt        time.Time `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	Images           []string  `bson:"images,omitempty" json:"images,omitempty"`
	ContactNumber    string    `bson:"Contact Number,omitempty" json:"Contact Number,omitempty"`
	ReferenceURL     string    `bson:"Reference URL,omitempty" json:"Reference URL,omitempty"`

	// Derived at query time from the free-text fields above.
	BuildingAreaNumeric *float64 `bson:"-" json:"building_area_numeric,omitempty"`
	LandAreaNumeric     *float64 `bson:"-" json:"land_area_numeric,omitempty"`
	ConstructionYear    *int     `bson:"-" json:"construction_year,omitempty"`
}

// SortField is the client-facing sort key.
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortBySalePrice SortField = "sale_price"
)

// SortOrder is the requested direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SearchParams carries the listing search filters. Nil means "not filtered".
type SearchParams struct {
	Prefecture          string
	Layout              string
	SalePriceMin        *int
	SalePriceMax        *int
	BuildingAreaMin     *int
	BuildingAreaMax     *int
	LandAreaMin         *int
	LandAreaMax         *int
	ConstructionYearMin *int
	ConstructionYearMax *int
	SortBy              SortField
	SortOrder           SortOrder
	Page                int
	Limit               int
}

// SearchResult is the paginated search payload.
type SearchResult struct {
	Results     []Listing `json:"results"`
	TotalCount  int64     `json:"total_count"`
	TotalPages  int64     `json:"total_pages"`
	CurrentPage int       `json:"current_page"`
}

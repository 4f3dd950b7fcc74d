package schema

import (
	"time"
)

// Category status ids as seeded in the legacy database.
const (
	SellingPostCategory = 1
	BuyingPostCategory  = 2
)

const (
	SellingPost = "Selling post"
	BuyingPost  = "Buying post"
)

type User struct {
	Id int `gorm:"primaryKey;autoIncrement" json:"id"`

	Name         string `gorm:"size:100" json:"name"`
	City         string `gorm:"size:45;not null" json:"city"`
	Address      string `gorm:"size:45" json:"address"`
	Status       bool   `gorm:"not null;default:false" json:"status"`
	Nic          string `gorm:"unique;size:12;not null" json:"nic"`
	MobileNumber int64  `gorm:"not null" json:"mobileNumber"`
	Username     string `gorm:"unique;size:45;not null" json:"username"`
	Password     []byte `json:"-"`

	Roles []Role `gorm:"many2many:user_has_role;" json:"roleList"`
}

func (User) TableName() string { return "user" }

type Role struct {
	Id   int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:45" json:"name"`

	Users []User `gorm:"many2many:user_has_role;" json:"-"`
}

func (Role) TableName() string { return "role" }

// CategoryStatus tags a shared post as a buying or selling post. The legacy
// table name is kept so existing data keeps working.
type CategoryStatus struct {
	Id     int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Status string `gorm:"size:45" json:"status"`
}

func (CategoryStatus) TableName() string { return "categoreystatus" }

type SharedPost struct {
	Id int `gorm:"primaryKey;autoIncrement" json:"id"`

	Title       string `gorm:"size:100" json:"title"`
	Description string `gorm:"column:discription" json:"description"`
	Quantity    string `gorm:"column:quentity;size:45" json:"quantity"`
	Longitude   string `gorm:"size:45" json:"longitude"`
	Latitude    string `gorm:"size:45" json:"latitude"`

	CreatedAt time.Time `gorm:"column:createdateandtime" json:"createDateAndTime"`

	UserId int   `gorm:"not null;index" json:"userId"`
	User   *User `json:"user,omitempty"`

	BitDetails []BitDetails `gorm:"foreignKey:SharedPostId" json:"bitDetails"`
	Reviews    []Review     `gorm:"foreignKey:SharedPostId" json:"reviews"`
	Media      []PostMedia  `gorm:"foreignKey:SharedPostId;constraint:OnDelete:CASCADE" json:"-"`

	CategoryStatusId int             `gorm:"column:categoreystatus_id" json:"categoryStatusId"`
	CategoryStatus   *CategoryStatus `gorm:"foreignKey:CategoryStatusId" json:"categoryStatus,omitempty"`
}

func (SharedPost) TableName() string { return "sharedpost" }

// PostMedia is one media file attached to a shared post. The bytes live in
// the media storage under StoragePath, only metadata is kept in the row.
type PostMedia struct {
	Id int `gorm:"primaryKey;autoIncrement" json:"id"`

	SharedPostId int `gorm:"not null;index" json:"sharedPostId"`
	Position     int `gorm:"not null" json:"position"`

	FileName    string `gorm:"size:255" json:"fileName"`
	ContentType string `gorm:"size:100" json:"contentType"`
	Kind        string `gorm:"size:20;not null" json:"kind"` // "image" or "video"
	FileSize    int64  `json:"fileSize"`

	StoragePath string `gorm:"size:255;not null" json:"-"`
}

type BitDetails struct {
	Id int `gorm:"primaryKey;autoIncrement" json:"id"`

	BitRate          float64 `gorm:"column:bitrate" json:"bitRate"`
	NeedAmount       float64 `gorm:"column:needamount" json:"needAmount"`
	ConfirmedState   string  `gorm:"column:conformedstate;size:45" json:"confirmedState"`
	DeliveryLocation string  `gorm:"size:100" json:"deliveryLocation"`

	SharedPostId int         `gorm:"column:sharedpost_id;not null;index" json:"sharedPostId"`
	SharedPost   *SharedPost `gorm:"foreignKey:SharedPostId" json:"-"`

	UserId int   `gorm:"index" json:"userId"`
	User   *User `json:"-"`
}

func (BitDetails) TableName() string { return "bitdetails" }

type Review struct {
	Id int `gorm:"primaryKey;autoIncrement" json:"id"`

	Comment string `json:"comment"`
	Rate    string `gorm:"size:45" json:"rate"`

	SharedPostId int         `gorm:"column:sharedpost_id;not null;index" json:"sharedPostId"`
	SharedPost   *SharedPost `gorm:"foreignKey:SharedPostId" json:"-"`
}

func (Review) TableName() string { return "review" }

type Delivery struct {
	Id int `gorm:"primaryKey;autoIncrement" json:"id"`

	TrackingNumber         string `gorm:"size:100" json:"trackingNumber"`
	Location               string `gorm:"size:45" json:"location"`
	CurrentPackageLocation string `gorm:"size:100" json:"currentPackageLocation"`
	DeliveryCompany        string `gorm:"size:100" json:"deliveryCompany"`
	Description            string `json:"description"`

	PaymentId int      `gorm:"not null" json:"paymentId"`
	Payment   *Payment `json:"payment,omitempty"`

	SharedPostId int         `gorm:"column:sharedpost_id;uniqueIndex" json:"sharedPostId"`
	SharedPost   *SharedPost `gorm:"foreignKey:SharedPostId" json:"sharedPost,omitempty"`

	StatusHistory []DeliveryStatusHistory `gorm:"foreignKey:DeliveryId;constraint:OnDelete:CASCADE" json:"-"`
}

func (Delivery) TableName() string { return "delivery" }

// DeliveryStatus is the status lookup table. The legacy table name carries
// the original misspelling.
type DeliveryStatus struct {
	Id   int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:45" json:"name"`
}

func (DeliveryStatus) TableName() string { return "delivery_staus" }

// DeliveryStatusHistory rows are append-only. The current status of a
// delivery is the row with the latest StatusChangedAt, ties broken by the
// highest id.
type DeliveryStatusHistory struct {
	Id int `gorm:"primaryKey;autoIncrement" json:"id"`

	StatusChangedAt time.Time `gorm:"column:status_date_change;not null;index" json:"statusDateChange"`

	DeliveryStatusId int             `gorm:"column:delivery_staus_id;not null" json:"deliveryStatusId"`
	DeliveryStatus   *DeliveryStatus `gorm:"foreignKey:DeliveryStatusId" json:"deliveryStatus,omitempty"`

	DeliveryId int       `gorm:"not null;index" json:"deliveryId"`
	Delivery   *Delivery `json:"-"`
}

func (DeliveryStatusHistory) TableName() string { return "delivery_status_history" }

type Payment struct {
	Id int `gorm:"primaryKey;autoIncrement" json:"id"`

	Amount float64 `json:"amount"`
	Note   string  `gorm:"size:45" json:"note"`
	File   []byte  `json:"-"`
	Status bool    `json:"status"`

	FileType string `gorm:"column:filetype;size:45" json:"fileType"`

	PaymentTypeId int          `gorm:"not null" json:"paymentTypeId"`
	PaymentType   *PaymentType `json:"paymentType,omitempty"`
}

func (Payment) TableName() string { return "payment" }

type PaymentType struct {
	Id   int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:45" json:"name"`
}

func (PaymentType) TableName() string { return "payment_type" }

type ShareStory struct {
	Id int `gorm:"primaryKey;autoIncrement" json:"id"`

	Title       string `gorm:"size:100" json:"title"`
	Description string `gorm:"column:discription" json:"description"`
	Image       []byte `json:"-"`

	CreatedAt time.Time `gorm:"column:createdateandtime" json:"createDateAndTime"`

	UserId int   `gorm:"index" json:"userId"`
	User   *User `json:"user,omitempty"`
}

func (ShareStory) TableName() string { return "sharestory" }

// PriceFeed is a stored wholesale price-feed document. The report column
// holds the raw JSON payload of the feed; the legacy table name comes from
// the csv upload flow that produces these records.
type PriceFeed struct {
	Id int `gorm:"primaryKey;autoIncrement" json:"id"`

	FileName   string    `gorm:"column:file_name;size:255" json:"fileName"`
	UploadedAt time.Time `gorm:"column:uploaddate" json:"uploadDate"`
	Report     []byte    `json:"report"`
}

func (PriceFeed) TableName() string { return "economiccsvreport" }

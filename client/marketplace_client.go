package client

import (
	"fmt"
	"io"
	"strconv"
	"time"
)

// MarketplaceClient talks to a running foodexchange server. It mirrors the
// routes the services expose, including the legacy path spellings.
type MarketplaceClient struct {
	BaseClient
}

func NewMarketplaceClient(baseUrl string) *MarketplaceClient {
	return &MarketplaceClient{BaseClient: NewBaseClient(baseUrl)}
}

func (c *MarketplaceClient) Health() error {
	return c.Get("/health").Do(nil)
}

type Role struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

type User struct {
	Id           int    `json:"id"`
	Name         string `json:"name"`
	City         string `json:"city"`
	Address      string `json:"address"`
	Nic          string `json:"nic"`
	MobileNumber int64  `json:"mobileNumber"`
	Username     string `json:"username"`
	Roles        []Role `json:"roleList"`
}

type CreateUserRequest struct {
	Name         string `json:"name"`
	City         string `json:"city"`
	Address      string `json:"address"`
	Nic          string `json:"nic"`
	MobileNumber int64  `json:"mobileNumber"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	RoleIds      []int  `json:"roleIds"`
}

func (c *MarketplaceClient) CreateUser(req CreateUserRequest) (User, error) {
	var user User
	err := c.Post("/user/").Json(req).Do(&user)
	return user, err
}

func (c *MarketplaceClient) GetUserByUsername(username string) (User, error) {
	var user User
	err := c.Get(fmt.Sprintf("/user/username/%v", username)).Do(&user)
	return user, err
}

func (c *MarketplaceClient) LoginRole(userId int) (string, error) {
	var res struct {
		Role string `json:"role"`
	}
	err := c.Get("/user/logingrole").Param("userId", strconv.Itoa(userId)).Do(&res)
	return res.Role, err
}

type UploadPostRequest struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Quantity         string `json:"quantity"`
	Longitude        string `json:"longitude"`
	Latitude         string `json:"latitude"`
	UserId           int    `json:"userId"`
	CategoryStatusId int    `json:"categoryStatusId"`
}

func (c *MarketplaceClient) UploadPost(req UploadPostRequest) (string, error) {
	return c.Post("/sharedpost/upload").Json(req).DoText()
}

// UploadPostWithMedia uploads a post along with media attachments in a single
// multipart request.
func (c *MarketplaceClient) UploadPostWithMedia(req UploadPostRequest, files ...File) (string, error) {
	fields := map[string]string{
		"title":            req.Title,
		"description":      req.Description,
		"quantity":         req.Quantity,
		"longitude":        req.Longitude,
		"latitude":         req.Latitude,
		"userId":           strconv.Itoa(req.UserId),
		"categoryStatusId": strconv.Itoa(req.CategoryStatusId),
	}
	return c.Post("/sharedpost/upload-media").Multipart(fields, files...).DoText()
}

type MediaFileInfo struct {
	Index       int    `json:"index"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	MediaType   string `json:"mediaType"`
	FileSize    int64  `json:"fileSize"`
	Url         string `json:"url"`
}

type MediaInfo struct {
	TotalFiles int             `json:"totalFiles"`
	Files      []MediaFileInfo `json:"files"`
}

func (c *MarketplaceClient) PostMediaInfo(postId int) (MediaInfo, error) {
	var info MediaInfo
	err := c.Get(fmt.Sprintf("/sharedpost/%d/media-info", postId)).Do(&info)
	return info, err
}

func (c *MarketplaceClient) PostMedia(postId, index int) ([]byte, error) {
	var data []byte
	err := c.Get(fmt.Sprintf("/sharedpost/media/%d/%d", postId, index)).Process(func(body io.Reader) error {
		var err error
		data, err = io.ReadAll(body)
		return err
	})
	return data, err
}

type AddBitRequest struct {
	BitRate          float64 `json:"bitRate"`
	NeedAmount       float64 `json:"needAmount"`
	ConfirmedState   string  `json:"confirmedState"`
	DeliveryLocation string  `json:"deliveryLocation"`
	UserId           int     `json:"userId"`
}

func (c *MarketplaceClient) AddBit(postId int, req AddBitRequest) (string, error) {
	return c.Post("/bitdetails/addbit").Param("postid", strconv.Itoa(postId)).Json(req).DoText()
}

type DeliveryStatus struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

type StatusHistoryEntry struct {
	Id              int             `json:"id"`
	StatusChangedAt time.Time       `json:"statusDateChange"`
	DeliveryStatus  *DeliveryStatus `json:"deliveryStatus"`
}

type Delivery struct {
	Id                     int                  `json:"id"`
	TrackingNumber         string               `json:"trackingNumber"`
	Location               string               `json:"location"`
	CurrentPackageLocation string               `json:"currentPackageLocation"`
	DeliveryCompany        string               `json:"deliveryCompany"`
	Description            string               `json:"description"`
	CurrentStatus          *DeliveryStatus      `json:"currentStatus"`
	StatusHistory          []StatusHistoryEntry `json:"statusHistory"`
}

type CreateDeliveryRequest struct {
	TrackingNumber         string `json:"trackingNumber"`
	Location               string `json:"location"`
	CurrentPackageLocation string `json:"currentPackageLocation"`
	DeliveryCompany        string `json:"deliveryCompany"`
	Description            string `json:"description"`
}

func (c *MarketplaceClient) CreateDelivery(postId int, req CreateDeliveryRequest) (Delivery, error) {
	var delivery Delivery
	err := c.Post("/delivery/create").Param("postId", strconv.Itoa(postId)).Json(req).Do(&delivery)
	return delivery, err
}

func (c *MarketplaceClient) GetDeliveryByPostId(postId int) (Delivery, error) {
	var delivery Delivery
	err := c.Get("/delivery/getbypostid").Param("postId", strconv.Itoa(postId)).Do(&delivery)
	return delivery, err
}

func (c *MarketplaceClient) UpdateDeliveryStatus(deliveryId, statusId int) (string, error) {
	body := map[string]int{"deliveryId": deliveryId, "statusId": statusId}
	return c.Post("/delivery/update-status").Json(body).DoText()
}

func (c *MarketplaceClient) DeliveryStatusHistory(deliveryId int) ([]StatusHistoryEntry, error) {
	var history []StatusHistoryEntry
	err := c.Get(fmt.Sprintf("/delivery/status-history/%d", deliveryId)).Do(&history)
	return history, err
}

func (c *MarketplaceClient) DeliveryCurrentStatus(deliveryId int) (StatusHistoryEntry, error) {
	var entry StatusHistoryEntry
	err := c.Get(fmt.Sprintf("/delivery/current-status/%d", deliveryId)).Do(&entry)
	return entry, err
}

// UpdateDeliveryDetails updates any subset of a delivery's fields. The fields
// map uses the same keys as the delivery JSON, plus an optional
// "deliveryStatus" entry to append a status change in the same transaction.
func (c *MarketplaceClient) UpdateDeliveryDetails(deliveryId int, fields map[string]interface{}) (map[string]interface{}, error) {
	var res map[string]interface{}
	err := c.Put("/delivery/update-all-details").
		Param("deliveryId", strconv.Itoa(deliveryId)).
		Json(fields).
		Do(&res)
	return res, err
}

type UploadPaymentRequest struct {
	Amount        float64
	Note          string
	PaymentTypeId int
	Status        bool
}

func (c *MarketplaceClient) UploadPayment(req UploadPaymentRequest, files ...File) (string, error) {
	fields := map[string]string{
		"amount": strconv.FormatFloat(req.Amount, 'f', -1, 64),
		"note":   req.Note,
		"status": strconv.FormatBool(req.Status),
	}
	if req.PaymentTypeId != 0 {
		fields["paymentTypeId"] = strconv.Itoa(req.PaymentTypeId)
	}
	return c.Post("/payment/upload").Multipart(fields, files...).DoText()
}

type PaymentFileInfo struct {
	PaymentId   int    `json:"paymentId"`
	HasFile     bool   `json:"hasFile"`
	FileType    string `json:"fileType"`
	ContentType string `json:"contentType"`
	FileSize    string `json:"fileSize"`
}

func (c *MarketplaceClient) PaymentFileInfo(paymentId int) (PaymentFileInfo, error) {
	var info PaymentFileInfo
	err := c.Get(fmt.Sprintf("/payment/file/info/%d", paymentId)).Do(&info)
	return info, err
}

func (c *MarketplaceClient) UserReport(username string) (map[string]string, error) {
	var report map[string]string
	err := c.Get("/userreport/").Param("username", username).Do(&report)
	return report, err
}

func (c *MarketplaceClient) SharedPostComparison(username string) ([]string, error) {
	var titles []string
	err := c.Get("/userreport/sharedpostComparsion").Param("username", username).Do(&titles)
	return titles, err
}

type RecentItem struct {
	Id           int     `json:"id"`
	Name         string  `json:"name"`
	PriceChanges float64 `json:"priceChanges"`
	Category     string  `json:"category"`
}

func (c *MarketplaceClient) RecentItems(username string) ([]RecentItem, error) {
	var items []RecentItem
	err := c.Get("/userreport/recent-items").Param("username", username).Do(&items)
	return items, err
}

type AddPriceFeedRequest struct {
	FileName string      `json:"fileName"`
	Report   interface{} `json:"report"`
}

func (c *MarketplaceClient) AddPriceFeed(req AddPriceFeedRequest) error {
	return c.Post("/pricefeed/add").Json(req).Do(nil)
}

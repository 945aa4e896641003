package shopee

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	pathAuthPartner   = "/api/v2/shop/auth_partner"
	pathTokenGet      = "/api/v2/auth/token/get"
	pathTokenRefresh  = "/api/v2/auth/access_token/get"
	pathOrderList     = "/api/v2/order/get_order_list"
	pathOrderDetail   = "/api/v2/order/get_order_detail"
	pathItemList      = "/api/v2/product/get_item_list"
	pathItemBaseInfo  = "/api/v2/product/get_item_base_info"
	defaultPageSize   = 50
	orderDetailFields = "total_amount,currency,order_status,recipient_address,item_list,create_time,update_time"
)

// APIError is a business-level rejection from the Shopee Open Platform,
// as opposed to a transport failure. Callers use AuthInvalid to decide
// whether the stored credentials are dead or the call just failed.
type APIError struct {
	RequestID string
	Code      string
	Message   string
	Status    int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopee api error %s: %s (request_id=%s, status=%d)", e.Code, e.Message, e.RequestID, e.Status)
}

// AuthInvalid reports whether the error means the access or refresh token
// is no longer usable and re-authorization is required.
func (e *APIError) AuthInvalid() bool {
	switch {
	case e.Code == "error_auth":
		return true
	case strings.Contains(e.Code, "invalid_access_token"):
		return true
	case strings.Contains(e.Code, "invalid_token"):
		return true
	case e.Code == "invalid_grant":
		return true
	}
	return e.Status == 401 || e.Status == 403
}

type Client struct {
	http       *resty.Client
	partnerID  int64
	partnerKey string
}

func NewClient(partnerID int64, partnerKey, baseURL string) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(20 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "sellerdesk/1.0")

	return &Client{
		http:       httpClient,
		partnerID:  partnerID,
		partnerKey: partnerKey,
	}
}

// sign builds the partner signature for an API call. Public endpoints sign
// partner_id|path|timestamp; shop endpoints append access_token and shop_id.
func (c *Client) sign(path string, ts int64, accessToken string, shopID int64) string {
	var base strings.Builder
	base.WriteString(strconv.FormatInt(c.partnerID, 10))
	base.WriteString(path)
	base.WriteString(strconv.FormatInt(ts, 10))
	if accessToken != "" {
		base.WriteString(accessToken)
		base.WriteString(strconv.FormatInt(shopID, 10))
	}

	mac := hmac.New(sha256.New, []byte(c.partnerKey))
	mac.Write([]byte(base.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) publicParams(path string, ts int64) map[string]string {
	return map[string]string{
		"partner_id": strconv.FormatInt(c.partnerID, 10),
		"timestamp":  strconv.FormatInt(ts, 10),
		"sign":       c.sign(path, ts, "", 0),
	}
}

func (c *Client) shopParams(path string, ts int64, accessToken string, shopID int64) map[string]string {
	return map[string]string{
		"partner_id":   strconv.FormatInt(c.partnerID, 10),
		"timestamp":    strconv.FormatInt(ts, 10),
		"sign":         c.sign(path, ts, accessToken, shopID),
		"access_token": accessToken,
		"shop_id":      strconv.FormatInt(shopID, 10),
	}
}

// AuthorizationURL returns the link a seller visits to authorize the partner
// app for their shop. Shopee redirects back with code and shop_id.
func (c *Client) AuthorizationURL(redirectURL string) string {
	ts := time.Now().Unix()
	return fmt.Sprintf("%s%s?partner_id=%d&timestamp=%d&sign=%s&redirect=%s",
		c.http.BaseURL, pathAuthPartner, c.partnerID, ts, c.sign(pathAuthPartner, ts, "", 0), redirectURL)
}

type baseResponse struct {
	RequestID string `json:"request_id"`
	ErrorCode string `json:"error"`
	Message   string `json:"message"`
}

func (c *Client) check(resp *resty.Response, base *baseResponse) error {
	if base.ErrorCode != "" || resp.StatusCode() >= 400 {
		return &APIError{
			RequestID: base.RequestID,
			Code:      base.ErrorCode,
			Message:   base.Message,
			Status:    resp.StatusCode(),
		}
	}
	return nil
}

type TokenResponse struct {
	baseResponse
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpireIn     int    `json:"expire_in"`
}

// GetAccessToken exchanges the authorization code from the seller consent
// redirect for the first access/refresh token pair.
func (c *Client) GetAccessToken(ctx context.Context, code string, shopID int64) (*TokenResponse, error) {
	ts := time.Now().Unix()
	var result TokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(c.publicParams(pathTokenGet, ts)).
		SetBody(map[string]any{
			"code":       code,
			"shop_id":    shopID,
			"partner_id": c.partnerID,
		}).
		SetResult(&result).
		SetError(&result.baseResponse).
		Post(pathTokenGet)
	if err != nil {
		return nil, fmt.Errorf("shopee token exchange: %w", err)
	}
	if err := c.check(resp, &result.baseResponse); err != nil {
		return nil, err
	}
	return &result, nil
}

// RefreshAccessToken trades a refresh token for a fresh pair. Shopee
// invalidates the old refresh token on success, so the caller must persist
// both returned tokens.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string, shopID int64) (*TokenResponse, error) {
	ts := time.Now().Unix()
	var result TokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(c.publicParams(pathTokenRefresh, ts)).
		SetBody(map[string]any{
			"refresh_token": refreshToken,
			"shop_id":       shopID,
			"partner_id":    c.partnerID,
		}).
		SetResult(&result).
		SetError(&result.baseResponse).
		Post(pathTokenRefresh)
	if err != nil {
		return nil, fmt.Errorf("shopee token refresh: %w", err)
	}
	if err := c.check(resp, &result.baseResponse); err != nil {
		return nil, err
	}
	return &result, nil
}

type OrderListResponse struct {
	baseResponse
	Response struct {
		OrderList []struct {
			OrderSN string `json:"order_sn"`
		} `json:"order_list"`
		More       bool   `json:"more"`
		NextCursor string `json:"next_cursor"`
	} `json:"response"`
}

// GetOrderList pages through order serial numbers updated inside the given
// window. Shopee caps a single window at 15 days; callers sync in slices.
func (c *Client) GetOrderList(ctx context.Context, accessToken string, shopID int64, from, to time.Time, cursor string) (*OrderListResponse, error) {
	ts := time.Now().Unix()
	params := c.shopParams(pathOrderList, ts, accessToken, shopID)
	params["time_range_field"] = "update_time"
	params["time_from"] = strconv.FormatInt(from.Unix(), 10)
	params["time_to"] = strconv.FormatInt(to.Unix(), 10)
	params["page_size"] = strconv.Itoa(defaultPageSize)
	if cursor != "" {
		params["cursor"] = cursor
	}

	var result OrderListResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&result).
		SetError(&result.baseResponse).
		Get(pathOrderList)
	if err != nil {
		return nil, fmt.Errorf("shopee order list: %w", err)
	}
	if err := c.check(resp, &result.baseResponse); err != nil {
		return nil, err
	}
	return &result, nil
}

type RecipientAddress struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	FullAddress string `json:"full_address"`
}

type OrderDetail struct {
	OrderSN          string           `json:"order_sn"`
	OrderStatus      string           `json:"order_status"`
	TotalAmount      decimal.Decimal  `json:"total_amount"`
	Currency         string           `json:"currency"`
	CreateTime       int64            `json:"create_time"`
	UpdateTime       int64            `json:"update_time"`
	RecipientAddress RecipientAddress `json:"recipient_address"`
	ItemList         []OrderItem      `json:"item_list"`
}

type OrderItem struct {
	ItemID          int64           `json:"item_id"`
	ItemName        string          `json:"item_name"`
	ItemSKU         string          `json:"item_sku"`
	Quantity        int             `json:"model_quantity_purchased"`
	DiscountedPrice decimal.Decimal `json:"model_discounted_price"`
}

type orderDetailResponse struct {
	baseResponse
	Response struct {
		OrderList []OrderDetail `json:"order_list"`
	} `json:"response"`
}

// GetOrderDetail fetches full order bodies for up to 50 serial numbers.
func (c *Client) GetOrderDetail(ctx context.Context, accessToken string, shopID int64, orderSNs []string) ([]OrderDetail, error) {
	if len(orderSNs) == 0 {
		return nil, nil
	}
	ts := time.Now().Unix()
	params := c.shopParams(pathOrderDetail, ts, accessToken, shopID)
	params["order_sn_list"] = strings.Join(orderSNs, ",")
	params["response_optional_fields"] = orderDetailFields

	var result orderDetailResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&result).
		SetError(&result.baseResponse).
		Get(pathOrderDetail)
	if err != nil {
		return nil, fmt.Errorf("shopee order detail: %w", err)
	}
	if err := c.check(resp, &result.baseResponse); err != nil {
		return nil, err
	}
	return result.Response.OrderList, nil
}

type ItemListResponse struct {
	baseResponse
	Response struct {
		Item []struct {
			ItemID     int64  `json:"item_id"`
			ItemStatus string `json:"item_status"`
			UpdateTime int64  `json:"update_time"`
		} `json:"item"`
		TotalCount  int  `json:"total_count"`
		HasNextPage bool `json:"has_next_page"`
		NextOffset  int  `json:"next_offset"`
	} `json:"response"`
}

// GetItemList pages through the shop's item ids.
func (c *Client) GetItemList(ctx context.Context, accessToken string, shopID int64, offset int) (*ItemListResponse, error) {
	ts := time.Now().Unix()
	params := c.shopParams(pathItemList, ts, accessToken, shopID)
	params["offset"] = strconv.Itoa(offset)
	params["page_size"] = strconv.Itoa(defaultPageSize)
	params["item_status"] = "NORMAL"

	var result ItemListResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&result).
		SetError(&result.baseResponse).
		Get(pathItemList)
	if err != nil {
		return nil, fmt.Errorf("shopee item list: %w", err)
	}
	if err := c.check(resp, &result.baseResponse); err != nil {
		return nil, err
	}
	return &result, nil
}

type PriceInfo struct {
	Currency     string          `json:"currency"`
	CurrentPrice decimal.Decimal `json:"current_price"`
}

type ItemInfo struct {
	ItemID      int64       `json:"item_id"`
	ItemName    string      `json:"item_name"`
	ItemSKU     string      `json:"item_sku"`
	ItemStatus  string      `json:"item_status"`
	PriceInfo   []PriceInfo `json:"price_info"`
	StockInfoV2 struct {
		SummaryInfo struct {
			TotalAvailableStock int `json:"total_available_stock"`
		} `json:"summary_info"`
	} `json:"stock_info_v2"`
}

type itemBaseInfoResponse struct {
	baseResponse
	Response struct {
		ItemList []ItemInfo `json:"item_list"`
	} `json:"response"`
}

// GetItemBaseInfo fetches name, sku, price and stock for up to 50 item ids.
func (c *Client) GetItemBaseInfo(ctx context.Context, accessToken string, shopID int64, itemIDs []int64) ([]ItemInfo, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	ts := time.Now().Unix()
	params := c.shopParams(pathItemBaseInfo, ts, accessToken, shopID)
	params["item_id_list"] = strings.Join(ids, ",")

	var result itemBaseInfoResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&result).
		SetError(&result.baseResponse).
		Get(pathItemBaseInfo)
	if err != nil {
		return nil, fmt.Errorf("shopee item base info: %w", err)
	}
	if err := c.check(resp, &result.baseResponse); err != nil {
		return nil, err
	}
	return result.Response.ItemList, nil
}

// VerifyPushSignature checks the Authorization header Shopee sends with push
// callbacks: hex HMAC-SHA256 of "<callback url>|<raw body>" keyed by the
// partner key.
func VerifyPushSignature(partnerKey, callbackURL string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(partnerKey))
	mac.Write([]byte(callbackURL))
	mac.Write([]byte("|"))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

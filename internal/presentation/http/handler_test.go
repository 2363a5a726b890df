package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	appaccount "github.com/Zhima-Mochi/sportsphere/internal/application/account"
	appcart "github.com/Zhima-Mochi/sportsphere/internal/application/cart"
	appcatalog "github.com/Zhima-Mochi/sportsphere/internal/application/catalog"
	apporder "github.com/Zhima-Mochi/sportsphere/internal/application/order"
	apppay "github.com/Zhima-Mochi/sportsphere/internal/application/payment"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/money"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/order"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/auth"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/id"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/memory"
	infrapay "github.com/Zhima-Mochi/sportsphere/internal/infrastructure/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	frontend    = "http://shop.test"
	hookSecret  = "hook"
	adminEmail  = "admin@example.com"
	defaultPass = "secret1"
)

type fixture struct {
	t        *testing.T
	router   http.Handler
	accounts *appaccount.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ids := id.NewUUIDGenerator()
	issuer, err := auth.NewJWTIssuer("test-secret", 0)
	require.NoError(t, err)

	accountRepo := memory.NewAccountRepository()
	products := memory.NewProductRepository()
	orders := memory.NewOrderRepository()

	accounts := appaccount.NewService(accountRepo, auth.NewBcryptHasher(bcrypt.MinCost), issuer, ids, nil)
	catalog := appcatalog.NewService(products, ids, nil)
	orderSvc := apporder.NewService(memory.NewUnitOfWork(orders, products), orders, accountRepo, order.DefaultPolicy(), ids, nil, nil)
	registry := apppay.NewRegistry(
		infrapay.COD{Surcharge: money.Rupees(100), MaxAmount: money.Rupees(20000)},
		infrapay.NewBankTransfer(apppay.BankDetails{AccountNumber: "1234567890123"}, infrapay.DefaultBankInstructions),
		infrapay.NewKhalti(infrapay.KhaltiConfig{PublicKey: "test_public", SecretKey: "test_secret", WebhookSecret: hookSecret}, ids),
		infrapay.NewEsewa(infrapay.EsewaConfig{}, nil, nil),
	)

	h := NewHandler(Services{
		Accounts: accounts,
		Catalog:  catalog,
		Orders:   orderSvc,
		Payments: apppay.NewGateway(orderSvc, registry, apppay.PublicConfig{}, frontend, ids, nil),
		Carts:    appcart.NewService(memory.NewCartStore(), catalog, nil),
		IDs:      ids,
	}, nil)
	return &fixture{t: t, router: h.Router(), accounts: accounts}
}

func (f *fixture) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (f *fixture) signup(name, email string) string {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/auth/register", "", map[string]string{"name": name, "email": email, "password": defaultPass})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	return f.login(email)
}

func (f *fixture) login(email string) string {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": defaultPass})
	require.Equal(f.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(f.t, rec)["token"].(string)
}

func (f *fixture) admin() string {
	f.t.Helper()
	f.signup("Admin", adminEmail)
	require.NoError(f.t, f.accounts.Bootstrap(context.Background(), adminEmail))
	return f.login(adminEmail)
}

func (f *fixture) product(adminToken string, stock int) string {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/products", adminToken, map[string]any{
		"name": "Kashmir Willow Bat", "brand": "SS", "price": 1000, "category": "bats",
		"description": "d", "image": "/img/bat.jpg", "countInStock": stock,
	})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(f.t, rec)["id"].(string)
}

func (f *fixture) placeOrder(token, productID, method string) map[string]any {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/orders", token, map[string]any{
		"orderItems": []map[string]any{{"product": productID, "qty": 2, "price": 1}},
		"shippingAddress": map[string]string{
			"address": "Thamel", "city": "Kathmandu", "district": "Kathmandu", "country": "Nepal",
		},
		"paymentMethod": method,
		"totalPrice":    1,
	})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(f.t, rec)
}

func (f *fixture) stock(productID string) float64 {
	f.t.Helper()
	rec := f.do(http.MethodGet, "/api/products/"+productID, "", nil)
	require.Equal(f.t, http.StatusOK, rec.Code)
	return decode(f.t, rec)["countInStock"].(float64)
}

func TestHealthEchoesRequestID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/health", "", nil, headerRequestID, "req-42")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "req-42", rec.Header().Get(headerRequestID))

	rec = f.do(http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Sita", "email": "Sita@Example.com", "password": defaultPass})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "sita@example.com", body["email"])
	assert.NotContains(t, body, "password")

	rec = f.do(http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Sita", "email": "sita@example.com", "password": defaultPass})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "user already exists", decode(t, rec)["message"])

	rec = f.do(http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Ram"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "sita@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticationVersusAuthorization(t *testing.T) {
	f := newFixture(t)
	user := f.signup("Sita", "sita@example.com")

	rec := f.do(http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "not authorized, no token", decode(t, rec)["message"])

	rec = f.do(http.MethodGet, "/api/orders", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/api/orders", user, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodPost, "/api/products", user, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodGet, "/api/users/profile", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sita@example.com", decode(t, rec)["email"])
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	user := f.signup("Sita", "sita@example.com")
	other := f.signup("Ram", "ram@example.com")
	pid := f.product(admin, 10)

	created := f.placeOrder(user, pid, "cod")
	orderID := created["id"].(string)
	assert.Equal(t, 2000.0, created["itemsPrice"])
	assert.Equal(t, 260.0, created["taxPrice"])
	assert.Equal(t, "pending", created["orderStatus"])
	assert.Equal(t, false, created["isPaid"])
	assert.Equal(t, 8.0, f.stock(pid))

	rec := f.do(http.MethodGet, "/api/orders/"+orderID, other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodGet, "/api/orders/myorders", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	assert.Len(t, mine, 1)

	rec = f.do(http.MethodPut, "/api/orders/"+orderID+"/pay", user, map[string]string{"id": "slip"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(http.MethodPut, "/api/orders/"+orderID+"/pay", admin, map[string]string{"id": "slip"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["isPaid"])

	rec = f.do(http.MethodPut, "/api/orders/"+orderID+"/status", admin, map[string]string{"status": "shipped"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shipped", decode(t, rec)["orderStatus"])

	rec = f.do(http.MethodPut, "/api/orders/"+orderID+"/cancel", user, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 8.0, f.stock(pid))

	rec = f.do(http.MethodPut, "/api/orders/"+orderID+"/deliver", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "delivered", decode(t, rec)["orderStatus"])
}

func TestCancelRestoresStock(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	user := f.signup("Sita", "sita@example.com")
	pid := f.product(admin, 5)

	orderID := f.placeOrder(user, pid, "khalti")["id"].(string)
	assert.Equal(t, 3.0, f.stock(pid))

	rec := f.do(http.MethodPut, "/api/orders/"+orderID+"/cancel", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "cancelled", body["order"].(map[string]any)["orderStatus"])
	assert.Equal(t, 5.0, f.stock(pid))
}

func TestOrderRejectsInsufficientStock(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	user := f.signup("Sita", "sita@example.com")
	pid := f.product(admin, 1)

	rec := f.do(http.MethodPost, "/api/orders", user, map[string]any{
		"orderItems":      []map[string]any{{"product": pid, "qty": 2}},
		"shippingAddress": map[string]string{"address": "a", "city": "c", "district": "d", "country": "Nepal"},
		"paymentMethod":   "cod",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1.0, f.stock(pid))
}

func TestEsewaRedirects(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	user := f.signup("Sita", "sita@example.com")
	pid := f.product(admin, 5)
	orderID := f.placeOrder(user, pid, "esewa")["id"].(string)

	rec := f.do(http.MethodPost, "/api/payment/esewa/initiate", user, map[string]string{"orderId": orderID})
	require.Equal(t, http.StatusOK, rec.Code)
	form := decode(t, rec)["payment"].(map[string]any)["formData"].(map[string]any)
	assert.Equal(t, "2460.00", form["total_amount"])

	rec = f.do(http.MethodGet, "/api/payment/esewa/failure?oid="+orderID, "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, frontend+"/checkout?payment=failed", rec.Header().Get("Location"))

	for i := 0; i < 2; i++ {
		rec = f.do(http.MethodGet, "/api/payment/esewa/success?oid="+orderID+"&refId=000AE01", "", nil)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, frontend+"/order-success/"+orderID+"?payment=success", rec.Header().Get("Location"))
	}

	rec = f.do(http.MethodGet, "/api/orders/"+orderID, user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["isPaid"])
	assert.Equal(t, "processing", body["orderStatus"])
}

func TestWebhookAnswersWithoutJSONErrors(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	user := f.signup("Sita", "sita@example.com")
	pid := f.product(admin, 5)
	orderID := f.placeOrder(user, pid, "khalti")["id"].(string)
	payload := []byte(`{"pidx":"px","status":"Completed","transaction_id":"tx-1","purchase_order_id":"` + orderID + `"}`)

	post := func(provider, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook/"+provider, bytes.NewReader(payload))
		req.Header.Set(headerSignature, signature)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		return rec
	}

	rec := post("khalti", infrapay.SignHex("wrong", payload))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, http.StatusText(http.StatusBadRequest), rec.Body.String())

	rec = post("paypal", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post("khalti", infrapay.SignHex(hookSecret, payload))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["received"])
}

func TestCartIsDeviceScoped(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	pid := f.product(admin, 5)

	rec := f.do(http.MethodPost, "/api/cart/items", "", map[string]string{"productId": pid})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cartID := rec.Header().Get(headerCartID)
	require.NotEmpty(t, cartID)

	rec = f.do(http.MethodPost, "/api/cart/items", "", map[string]string{"productId": pid}, headerCartID, cartID)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 2.0, body["count"])
	assert.Equal(t, 2000.0, body["itemsPrice"])

	rec = f.do(http.MethodPut, "/api/cart/items/"+pid, "", map[string]int{"qty": 9}, headerCartID, cartID)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodGet, "/api/cart", "", nil, headerCartID, "another-device")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, decode(t, rec)["count"])

	rec = f.do(http.MethodDelete, "/api/cart/items/"+pid, "", nil, headerCartID, cartID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, decode(t, rec)["count"])
}

func TestProductsListAndAdminCRUD(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	pid := f.product(admin, 5)

	rec := f.do(http.MethodGet, "/api/products?category=BATS", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = f.do(http.MethodPut, "/api/products/"+pid, admin, map[string]any{"price": 1250.5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1250.5, decode(t, rec)["price"])

	rec = f.do(http.MethodDelete, "/api/products/"+pid, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(http.MethodGet, "/api/products/"+pid, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package walletctl

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

const (
	fakeSigningKey      = "fake-ledger-signing-key"
	fakeTimestampLayout = "2006-01-02T15:04:05.000000"
)

type fakeAccount struct {
	id       int
	username string
	password string
	balance  decimal.Decimal
}

type fakeTransaction struct {
	id        int
	sender    int
	receiver  int
	amount    decimal.Decimal
	status    string
	timestamp time.Time
}

// fakeLedger mimics the wallet server: JWT login, balances, transfers, and history.
type fakeLedger struct {
	mu           sync.Mutex
	accounts     map[string]*fakeAccount
	byID         map[int]*fakeAccount
	transactions []fakeTransaction
	revoked      bool
	clock        time.Time
	server       *httptest.Server
}

func newFakeLedger(test *testing.T) *fakeLedger {
	test.Helper()
	gin.SetMode(gin.TestMode)
	fake := &fakeLedger{
		accounts: map[string]*fakeAccount{},
		byID:     map[int]*fakeAccount{},
		clock:    time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
	fake.addAccount("alice", "wonderland", "100.5")
	fake.addAccount("bob", "builder", "20")

	router := gin.New()
	router.POST("/login", fake.handleLogin)
	router.POST("/register", fake.handleRegister)
	authorized := router.Group("/", fake.requireToken)
	authorized.GET("/balance", fake.handleBalance)
	authorized.POST("/transfer", fake.handleTransfer)
	authorized.GET("/transactions/:userID", fake.handleTransactions)
	authorized.GET("/users", fake.handleUsers)
	fake.server = httptest.NewServer(router)
	test.Cleanup(fake.server.Close)
	return fake
}

func (fake *fakeLedger) addAccount(username string, password string, balance string) *fakeAccount {
	account := &fakeAccount{id: len(fake.accounts) + 1, username: username, password: password, balance: decimal.RequireFromString(balance)}
	fake.accounts[username] = account
	fake.byID[account.id] = account
	return account
}

func (fake *fakeLedger) revoke() {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.revoked = true
}

func (fake *fakeLedger) handleLogin(ctx *gin.Context) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	account, ok := fake.accounts[payload.Username]
	if !ok || account.password != payload.Password {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(account.id),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(fakeSigningKey))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	balance, _ := account.balance.Float64()
	ctx.JSON(http.StatusOK, gin.H{"access_token": token, "user_id": account.id, "username": account.username, "balance": balance})
}

func (fake *fakeLedger) handleRegister(ctx *gin.Context) {
	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if _, exists := fake.accounts[payload.Username]; exists {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
		return
	}
	fake.addAccount(payload.Username, payload.Password, "100")
	ctx.JSON(http.StatusCreated, gin.H{"message": "User created successfully"})
}

func (fake *fakeLedger) requireToken(ctx *gin.Context) {
	raw := strings.TrimPrefix(ctx.GetHeader("Authorization"), "Bearer ")
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(fakeSigningKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	fake.mu.Lock()
	revoked := fake.revoked
	fake.mu.Unlock()
	if err != nil || revoked {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "Token has expired"})
		return
	}
	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "Bad subject"})
		return
	}
	ctx.Set("userID", userID)
	ctx.Next()
}

func (fake *fakeLedger) handleBalance(ctx *gin.Context) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	account := fake.byID[ctx.GetInt("userID")]
	balance, _ := account.balance.Float64()
	ctx.JSON(http.StatusOK, gin.H{"balance": balance})
}

func (fake *fakeLedger) handleTransfer(ctx *gin.Context) {
	var payload struct {
		ReceiverUsername string          `json:"receiver_username"`
		Amount           decimal.Decimal `json:"amount"`
	}
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	sender := fake.byID[ctx.GetInt("userID")]
	if !payload.Amount.IsPositive() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
		return
	}
	receiver, ok := fake.accounts[payload.ReceiverUsername]
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Receiver not found"})
		return
	}
	if receiver.id == sender.id {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Cannot transfer to yourself"})
		return
	}
	if sender.balance.LessThan(payload.Amount) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient balance"})
		return
	}
	sender.balance = sender.balance.Sub(payload.Amount)
	receiver.balance = receiver.balance.Add(payload.Amount)
	fake.clock = fake.clock.Add(time.Minute)
	transaction := fakeTransaction{id: len(fake.transactions) + 1, sender: sender.id, receiver: receiver.id, amount: payload.Amount, status: "SUCCESS", timestamp: fake.clock}
	fake.transactions = append(fake.transactions, transaction)
	balance, _ := sender.balance.Float64()
	ctx.JSON(http.StatusOK, gin.H{"message": "Transfer successful", "new_balance": balance, "transaction_id": transaction.id})
}

func (fake *fakeLedger) handleTransactions(ctx *gin.Context) {
	requested, err := strconv.Atoi(ctx.Param("userID"))
	if err != nil || requested != ctx.GetInt("userID") {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized access"})
		return
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	rows := []gin.H{}
	for index := len(fake.transactions) - 1; index >= 0; index-- {
		transaction := fake.transactions[index]
		var transactionType string
		var otherParty *fakeAccount
		switch requested {
		case transaction.sender:
			transactionType, otherParty = "SENT", fake.byID[transaction.receiver]
		case transaction.receiver:
			transactionType, otherParty = "RECEIVED", fake.byID[transaction.sender]
		default:
			continue
		}
		amount, _ := transaction.amount.Float64()
		rows = append(rows, gin.H{
			"id":          transaction.id,
			"type":        transactionType,
			"other_party": otherParty.username,
			"amount":      amount,
			"status":      transaction.status,
			"timestamp":   transaction.timestamp.Format(fakeTimestampLayout),
			"description": "Transfer with " + otherParty.username,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"transactions": rows})
}

func (fake *fakeLedger) handleUsers(ctx *gin.Context) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	current := ctx.GetInt("userID")
	users := []gin.H{}
	for id := 1; id <= len(fake.byID); id++ {
		if id == current {
			continue
		}
		users = append(users, gin.H{"id": id, "username": fake.byID[id].username})
	}
	ctx.JSON(http.StatusOK, gin.H{"users": users})
}

package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderID = "99999999-9999-4999-8999-999999999999"

var (
	cartLineColumns = []string{"product_id", "quantity"}
	productColumns  = []string{"id", "name", "image_url", "price", "stock_quantity", "in_stock"}
	orderRowColumns = []string{
		"id", "order_number", "user_id", "total_amount", "currency", "status", "payment_status",
		"shipping_full_name", "shipping_phone", "shipping_address", "shipping_city", "shipping_region",
		"payment_reference", "notes", "created_at", "updated_at",
	}
	itemColumns = []string{"order_id", "product_id", "name", "image_url", "unit_price", "quantity"}
)

func validInput() CreateOrderInput {
	return CreateOrderInput{
		ShippingAddress: ShippingAddress{
			FullName: "Ama Mensah",
			Phone:    "0241234567",
			Address:  "12 Oxford Street",
			City:     "Accra",
			Region:   "Greater Accra",
		},
	}
}

// expectCheckoutUntilProducts queues the cart lock, cart lines and product
// lock queries shared by every checkout test.
func expectCheckoutUntilProducts(mock sqlmock.Sqlmock, phoneStock int) {
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM carts").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery("FROM cart_items").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(cartLineColumns).
			AddRow(phoneID, 2).
			AddRow(laptopID, 1))
	mock.ExpectQuery("FROM products").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow(phoneID, "Phone", "https://img/p", "10.00", phoneStock, phoneStock > 0).
			AddRow(laptopID, "Laptop", "https://img/l", "5.00", 3, true))
}

func TestRepository_CreateFromCart(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		expectCheckoutUntilProducts(mock, 5)
		mock.ExpectQuery("nextval").
			WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(1))
		mock.ExpectQuery("INSERT INTO orders").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(orderID, now, now))
		mock.ExpectExec("INSERT INTO order_items").
			WithArgs(orderID, phoneID, "Phone", "https://img/p", sqlmock.AnyArg(), 2).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO order_items").
			WithArgs(orderID, laptopID, "Laptop", "https://img/l", sqlmock.AnyArg(), 1).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectExec("UPDATE products").
			WithArgs(2, phoneID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE products").
			WithArgs(1, laptopID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM cart_items").
			WithArgs(7).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec("UPDATE carts").
			WithArgs(7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		o, err := repo.CreateFromCart(ctx, 1, validInput())
		require.NoError(t, err)
		assert.Equal(t, orderID, o.ID)
		assert.Equal(t, "ORD-000001", o.OrderNumber)
		assert.True(t, o.TotalAmount.Equal(decimal.NewFromInt(25)))
		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, PaymentPending, o.PaymentStatus)
		assert.Len(t, o.Items, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NoCart", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM carts").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		_, err = repo.CreateFromCart(ctx, 1, validInput())
		assert.ErrorIs(t, err, ErrCartEmpty)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("EmptyCart", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM carts").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
		mock.ExpectQuery("FROM cart_items").
			WillReturnRows(sqlmock.NewRows(cartLineColumns))
		mock.ExpectRollback()

		_, err = repo.CreateFromCart(ctx, 1, validInput())
		assert.ErrorIs(t, err, ErrCartEmpty)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("OutOfStockWritesNothing", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		expectCheckoutUntilProducts(mock, 1)
		mock.ExpectRollback()

		_, err = repo.CreateFromCart(ctx, 1, validInput())
		assert.ErrorIs(t, err, ErrProductOutOfStock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("StockFloorRollsBack", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		expectCheckoutUntilProducts(mock, 5)
		mock.ExpectQuery("nextval").
			WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(2))
		mock.ExpectQuery("INSERT INTO orders").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(orderID, now, now))
		mock.ExpectExec("INSERT INTO order_items").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO order_items").WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectExec("UPDATE products").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err = repo.CreateFromCart(ctx, 1, validInput())
		assert.ErrorIs(t, err, ErrProductOutOfStock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DuplicateReference", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		expectCheckoutUntilProducts(mock, 5)
		mock.ExpectQuery("FROM payments").
			WillReturnRows(sqlmock.NewRows([]string{"status", "amount"}))
		mock.ExpectQuery("nextval").
			WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(3))
		mock.ExpectQuery("INSERT INTO orders").
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		in := validInput()
		ref := "storefront_1_abc"
		in.PaymentReference = &ref
		_, err = repo.CreateFromCart(ctx, 1, in)
		assert.ErrorIs(t, err, ErrDuplicateReference)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_CreateFromCart_PaymentReference(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	ref := "storefront_1_abc"

	// expectRest queues everything after the payment lookup. The order
	// insert must carry the expected status pair.
	expectRest := func(mock sqlmock.Sqlmock, status Status, paymentStatus PaymentStatus) {
		mock.ExpectQuery("nextval").
			WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(4))
		mock.ExpectQuery("INSERT INTO orders").
			WithArgs("ORD-000004", 1, sqlmock.AnyArg(), DefaultCurrency, status, paymentStatus,
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				&ref, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(orderID, now, now))
		mock.ExpectExec("INSERT INTO order_items").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO order_items").WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectExec("UPDATE products").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE products").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM cart_items").WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec("UPDATE carts").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	tests := []struct {
		name          string
		rows          *sqlmock.Rows
		status        Status
		paymentStatus PaymentStatus
	}{
		{
			name:          "VerifiedPaymentStartsPaid",
			rows:          sqlmock.NewRows([]string{"status", "amount"}).AddRow("success", "25.00"),
			status:        StatusProcessing,
			paymentStatus: PaymentPaid,
		},
		{
			name:          "UnknownReferenceStartsPending",
			rows:          sqlmock.NewRows([]string{"status", "amount"}),
			status:        StatusPending,
			paymentStatus: PaymentPending,
		},
		{
			name:          "UnverifiedPaymentStartsPending",
			rows:          sqlmock.NewRows([]string{"status", "amount"}).AddRow("initialized", "25.00"),
			status:        StatusPending,
			paymentStatus: PaymentPending,
		},
		{
			name:          "ShortPaymentStartsPending",
			rows:          sqlmock.NewRows([]string{"status", "amount"}).AddRow("success", "1.00"),
			status:        StatusPending,
			paymentStatus: PaymentPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			repo := NewRepository(db)

			expectCheckoutUntilProducts(mock, 5)
			mock.ExpectQuery("FROM payments").
				WithArgs(ref, 1).
				WillReturnRows(tt.rows)
			expectRest(mock, tt.status, tt.paymentStatus)

			in := validInput()
			in.PaymentReference = &ref
			o, err := repo.CreateFromCart(ctx, 1, in)
			require.NoError(t, err)
			assert.Equal(t, tt.status, o.Status)
			assert.Equal(t, tt.paymentStatus, o.PaymentStatus)
			require.NotNil(t, o.PaymentReference)
			assert.Equal(t, ref, *o.PaymentReference)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("LookupErrorRollsBack", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		expectCheckoutUntilProducts(mock, 5)
		mock.ExpectQuery("FROM payments").WillReturnError(errors.New("db error"))
		mock.ExpectRollback()

		in := validInput()
		in.PaymentReference = &ref
		_, err = repo.CreateFromCart(ctx, 1, in)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(db)

	now := time.Now()
	status := StatusPending

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(1, status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery("ORDER BY created_at DESC").
		WithArgs(1, status, 10, 10).
		WillReturnRows(sqlmock.NewRows(orderRowColumns).
			AddRow(orderID, "ORD-000011", 1, "25.00", "GHS", "pending", "pending",
				"Ama", "024", "St", "Accra", "GA", nil, "leave at gate", now, now))
	mock.ExpectQuery("FROM order_items").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow(orderID, phoneID, "Phone", "https://img/p", "10.00", 2).
			AddRow(orderID, laptopID, "Laptop", "https://img/l", "5.00", 1))

	orders, total, err := repo.List(context.Background(), 1, ListOptions{Page: 2, Limit: 10, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, orders, 1)
	assert.Nil(t, orders[0].PaymentReference)
	require.NotNil(t, orders[0].Notes)
	assert.Equal(t, "leave at gate", *orders[0].Notes)
	assert.Len(t, orders[0].Items, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(db)

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("FROM orders WHERE id").
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows(orderRowColumns))

		_, err := repo.GetByID(context.Background(), orderID)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("Error", func(t *testing.T) {
		mock.ExpectQuery("FROM orders WHERE id").
			WillReturnError(errors.New("db error"))

		_, err := repo.GetByID(context.Background(), orderID)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestRepository_Stats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(db)

	mock.ExpectQuery("FILTER").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum", "pending", "delivered"}).AddRow(3, "75.50", 1, 2))

	s, err := repo.Stats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, s.TotalOrders)
	assert.True(t, s.TotalSpent.Equal(decimal.RequireFromString("75.50")))
	assert.Equal(t, 1, s.PendingOrders)
	assert.Equal(t, 2, s.CompletedOrders)
}

func TestRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE orders").
			WithArgs(StatusProcessing, orderID, StatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateStatus(context.Background(), orderID, StatusPending, StatusProcessing))
	})

	t.Run("ChangedConcurrently", func(t *testing.T) {
		mock.ExpectExec("UPDATE orders").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(context.Background(), orderID, StatusPending, StatusProcessing)
		assert.ErrorIs(t, err, ErrStatusChanged)
	})
}

func TestRepository_AttachPaymentReference(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(db)
	ctx := context.Background()

	mock.ExpectExec("SET payment_reference").
		WithArgs("ref-1", orderID, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.AttachPaymentReference(ctx, orderID, 1, "ref-1"))

	mock.ExpectExec("SET payment_reference").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.AttachPaymentReference(ctx, orderID, 1, "ref-2"), ErrAlreadyPaid)

	mock.ExpectExec("SET payment_reference").
		WillReturnError(&pq.Error{Code: "23505"})
	assert.ErrorIs(t, repo.AttachPaymentReference(ctx, orderID, 1, "ref-3"), ErrDuplicateReference)
}

func TestRepository_MarkPaymentByReference(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(db)
	ctx := context.Background()

	t.Run("Paid", func(t *testing.T) {
		mock.ExpectQuery("SET payment_status = 'paid'").
			WithArgs("ref-1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(orderID))

		id, changed, err := repo.MarkPaymentByReference(ctx, "ref-1", OutcomePaid)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, orderID, id)
	})

	t.Run("AlreadyApplied", func(t *testing.T) {
		mock.ExpectQuery("SET payment_status = 'failed'").
			WithArgs("ref-1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, changed, err := repo.MarkPaymentByReference(ctx, "ref-1", OutcomeFailed)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("UnknownOutcome", func(t *testing.T) {
		_, _, err := repo.MarkPaymentByReference(ctx, "ref-1", PaymentOutcome("maybe"))
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

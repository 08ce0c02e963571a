package console

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fsanano/shopcart/internal/catalog"
	"fsanano/shopcart/internal/repository"
	"fsanano/shopcart/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newServices(t *testing.T) (*service.UserService, *service.ShopService) {
	t.Helper()

	repo := repository.NewUserFileRepository(filepath.Join(t.TempDir(), "users.txt"), nil)
	users := service.NewUserService(repo, false, zap.NewNop())
	_, err := users.Load(context.Background())
	require.NoError(t, err)

	c, err := catalog.Default()
	require.NoError(t, err)
	return users, service.NewShopService(c, users, zap.NewNop())
}

func runScript(t *testing.T, lines ...string) (string, *service.UserService) {
	t.Helper()

	users, shop := newServices(t)
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	require.NoError(t, New(in, &out, users, shop, zap.NewNop()).Run(context.Background()))
	return out.String(), users
}

func TestSignUpLoginShop(t *testing.T) {
	out, users := runScript(t,
		// sign up
		"1", "Alice", "alice@example.com", "pw", "555-0100", "30",
		// log in with a different email case
		"2", "ALICE@example.com", "pw",
		// view products: Puma electronics, add 2 smartwatches
		"1", "1", "puma smartwatch", "2", "",
		// Adidas: empty category (toys) is skipped
		"7",
		// view cart
		"2",
		// remove one
		"3", "Puma Smartwatch", "1",
		// remove too many
		"3", "Puma Smartwatch", "5",
		// remove something absent
		"3", "Puma Jacket", "1",
		// log out, exit
		"4", "3",
	)

	assert.Equal(t, 1, users.Count())
	assert.Contains(t, out, "Sign-up successful! You can now log in.")
	assert.Contains(t, out, "Welcome back, Alice!")
	assert.Contains(t, out, "Puma Smartwatch - Price: $3499.00 (Discount: 10%)")
	assert.Contains(t, out, "2 x Puma Smartwatch added to the cart. Available Quantity: 8")
	assert.Contains(t, out, "Looks like there are no products in this category right now.")
	assert.Contains(t, out, "2 x Puma Smartwatch - $3149.10 each (Discount: 10%)")
	assert.Contains(t, out, "Sales Tax: $629.82")
	assert.Contains(t, out, "Total after tax: $6928.02")
	assert.Contains(t, out, "1 x Puma Smartwatch removed from the cart.")
	assert.Contains(t, out, "Cannot remove 5 x Puma Smartwatch. Only 1 available in cart.")
	assert.Contains(t, out, "Puma Jacket is not in the cart.")
}

func TestLoginFailure(t *testing.T) {
	out, _ := runScript(t, "2", "nobody@example.com", "pw", "3")
	assert.Contains(t, out, "Invalid email or password. Please try again.")
}

func TestInvalidInputs(t *testing.T) {
	out, _ := runScript(t,
		"abc",
		"9",
		"1", "Bob", "bob@example.com", "pw", "555", "-3",
		"3",
	)
	assert.Contains(t, out, "Invalid input, please enter a number between 1 and 3.")
	assert.Contains(t, out, "Invalid option. Please select a valid option.")
	assert.Contains(t, out, "Invalid age entered. Please try again.")
	assert.NotContains(t, out, "Sign-up successful")
}

func TestViewProducts_InvalidChoices(t *testing.T) {
	out, _ := runScript(t,
		"1", "Cy", "cy@example.com", "pw", "555", "20",
		"2", "cy@example.com", "pw",
		// category out of range sends us back to the user menu
		"1", "12",
		// bad quantity
		"1", "2", "Puma Jacket", "zero",
		// unknown product
		"1", "2", "Puma Socks", "1", "", "7",
		// too many
		"1", "1", "Puma Wireless Earbuds", "6", "", "7",
		// empty cart
		"2",
		"4", "3",
	)
	assert.Contains(t, out, "That doesn't seem to be a valid choice. Let's try that again.")
	assert.Contains(t, out, "Hmm, that doesn't seem like a valid quantity. Please try again.")
	assert.Contains(t, out, "Sorry, we couldn't find that product.")
	assert.Contains(t, out, "Cannot add 6 x Puma Wireless Earbuds. Only 5 available.")
	assert.Contains(t, out, "Your cart is empty.")
}

func TestEOFEndsSession(t *testing.T) {
	out, _ := runScript(t, "1", "Dee")
	assert.Contains(t, out, "Enter your email: ")
}

func TestCancelInterruptsPendingPrompt(t *testing.T) {
	users, shop := newServices(t)

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- New(pr, &out, users, shop, zap.NewNop()).Run(ctx)
	}()

	// Start a sign-up and stall before the email is typed.
	_, err := io.WriteString(pw, "1\nDee\n")
	require.NoError(t, err)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the context was cancelled")
	}

	assert.NotContains(t, out.String(), "Enter your password: ")
	assert.Equal(t, 0, users.Count())
}

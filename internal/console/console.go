package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fsanano/shopcart/internal/cart"
	"fsanano/shopcart/internal/catalog"
	"fsanano/shopcart/internal/model"
	"fsanano/shopcart/internal/service"

	"go.uber.org/zap"
)

// errQuit means the input ran out or the context was cancelled. A closed
// input ends the session without an error.
var errQuit = errors.New("input closed")

type inputLine struct {
	text string
	err  error
}

// Console drives the menu protocol over a line-based reader and writer.
type Console struct {
	in     *bufio.Scanner
	out    io.Writer
	users  *service.UserService
	shop   *service.ShopService
	logger *zap.Logger

	ctx   context.Context
	lines chan inputLine
	done  chan struct{}
}

func New(in io.Reader, out io.Writer, users *service.UserService, shop *service.ShopService, logger *zap.Logger) *Console {
	return &Console{
		in:     bufio.NewScanner(in),
		out:    out,
		users:  users,
		shop:   shop,
		logger: logger,
	}
}

// Run shows the main menu until the user exits or input ends. Cancelling ctx
// interrupts a pending prompt and Run returns ctx.Err().
func (c *Console) Run(ctx context.Context) error {
	c.ctx = ctx
	c.lines = make(chan inputLine)
	c.done = make(chan struct{})
	defer close(c.done)
	go c.readLines()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.println("\nWelcome to the Shopping Cart!")
		c.println("1. Sign Up")
		c.println("2. Log In")
		c.println("3. Exit")

		choice, err := c.promptInt("Choose an option: ")
		if errors.Is(err, errQuit) {
			return ctx.Err()
		}
		if err != nil {
			c.println("Invalid input, please enter a number between 1 and 3.")
			continue
		}

		switch choice {
		case 1:
			err = c.signUp(ctx)
		case 2:
			err = c.logIn(ctx)
		case 3:
			return nil
		default:
			c.println("Invalid option. Please select a valid option.")
		}
		if errors.Is(err, errQuit) {
			return ctx.Err()
		}
		if err != nil {
			return err
		}
	}
}

func (c *Console) signUp(ctx context.Context) error {
	var in service.RegisterInput
	var err error

	if in.Name, err = c.prompt("Enter your name: "); err != nil {
		return err
	}
	if in.Email, err = c.prompt("Enter your email: "); err != nil {
		return err
	}
	if in.Password, err = c.prompt("Enter your password: "); err != nil {
		return err
	}
	if in.PhoneNumber, err = c.prompt("Enter your phone number: "); err != nil {
		return err
	}
	in.Age, err = c.promptInt("Enter your age: ")
	if errors.Is(err, errQuit) {
		return err
	}
	if err != nil || in.Age < 0 {
		c.println("Invalid age entered. Please try again.")
		return nil
	}

	if _, err := c.users.Register(ctx, in); err != nil {
		if errors.Is(err, service.ErrInvalidUser) {
			c.printf("Sign-up failed: %v\n", err)
			return nil
		}
		c.logger.Error("failed to register user", zap.Error(err))
		c.println("Sign-up failed, please try again later.")
		return nil
	}

	c.println("Sign-up successful! You can now log in.")
	return nil
}

func (c *Console) logIn(ctx context.Context) error {
	email, err := c.prompt("Enter your email: ")
	if err != nil {
		return err
	}
	password, err := c.prompt("Enter your password: ")
	if err != nil {
		return err
	}

	sess, err := c.shop.Login(email, password)
	if err != nil {
		c.println("Invalid email or password. Please try again.")
		return nil
	}
	defer c.shop.Logout(sess.ID)

	c.printf("Welcome back, %s!\n", sess.User.Name)
	return c.userMenu(ctx, sess)
}

func (c *Console) userMenu(ctx context.Context, sess *service.Session) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.println("\nUser Menu:")
		c.println("1. View Products")
		c.println("2. View Cart")
		c.println("3. Remove Product from Cart")
		c.println("4. Log Out")

		choice, err := c.promptInt("Choose an option: ")
		if errors.Is(err, errQuit) {
			return err
		}
		if err != nil {
			c.println("Invalid input, please enter a number between 1 and 4.")
			continue
		}

		switch choice {
		case 1:
			err = c.viewProducts(sess)
		case 2:
			c.viewCart(sess)
		case 3:
			err = c.removeProduct(sess)
		case 4:
			return nil
		default:
			c.println("Invalid option. Please select a valid option.")
		}
		if err != nil {
			return err
		}
	}
}

// viewProducts walks every shop in turn, offering one category and one
// product per shop.
func (c *Console) viewProducts(sess *service.Session) error {
	c.println("\nAvailable Products:")
	for _, shop := range c.shop.Shops() {
		c.printf("\nShop: %s\n", shop)
		c.println("Categories: ")
		for _, cat := range model.Categories() {
			c.printf("%d. %s\n", int(cat), cat)
		}

		categoryID, err := c.promptInt(fmt.Sprintf("Which category do you want to explore? (1-%d): ", model.CategoryCount))
		if errors.Is(err, errQuit) {
			return err
		}
		if err != nil || !model.Category(categoryID).Valid() {
			c.println("That doesn't seem to be a valid choice. Let's try that again.")
			return nil
		}

		products := c.shop.Browse(shop, categoryID)
		if len(products) == 0 {
			c.println("Looks like there are no products in this category right now.")
			continue
		}
		for _, p := range products {
			c.printf("%s - Price: $%s (Discount: %s%%)\n", p.Name, p.Price.StringFixed(2), p.Discount)
		}

		name, err := c.prompt("Which product would you like to add to your cart? ")
		if err != nil {
			return err
		}
		qty, err := c.promptInt("How many would you like to add? ")
		if errors.Is(err, errQuit) {
			return err
		}
		if err != nil || qty <= 0 {
			c.println("Hmm, that doesn't seem like a valid quantity. Please try again.")
			return nil
		}

		res, err := c.shop.AddToCart(sess.ID, shop, model.Category(categoryID), name, qty)
		switch {
		case err == nil:
			c.printf("%d x %s added to the cart. Available Quantity: %d\n", res.Added, res.Product, res.Available)
		case errors.Is(err, catalog.ErrInsufficientStock):
			c.printf("Cannot add %d x %s. Only %d available.\n", qty, res.Product, res.Available)
		case errors.Is(err, catalog.ErrProductNotFound):
			c.println("Sorry, we couldn't find that product.")
		default:
			return err
		}

		c.println("Press Enter to continue...")
		if _, err := c.prompt(""); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) viewCart(sess *service.Session) {
	c.println("\nShopping Cart:")

	receipt, err := c.shop.ViewCart(sess.ID)
	if errors.Is(err, cart.ErrCartExpired) {
		c.println("Your cart has expired. Please create a new cart.")
		return
	}
	if err != nil {
		c.logger.Error("failed to view cart", zap.Error(err))
		c.println("Your cart could not be shown right now.")
		return
	}
	if receipt.Empty() {
		c.println("Your cart is empty.")
		return
	}

	for _, line := range receipt.Lines {
		c.printf("%d x %s - $%s each (Discount: %s%%)\n",
			line.Quantity, line.Product, line.UnitPrice.StringFixed(2), line.Discount)
	}
	c.printf("Sales Tax: $%s\n", receipt.Tax.StringFixed(2))
	c.printf("Total after tax: $%s\n", receipt.Total.StringFixed(2))
}

func (c *Console) removeProduct(sess *service.Session) error {
	name, err := c.prompt("Enter the product name you want to remove: ")
	if err != nil {
		return err
	}
	qty, err := c.promptInt("Enter the quantity to remove: ")
	if errors.Is(err, errQuit) {
		return err
	}
	if err != nil || qty <= 0 {
		c.println("Hmm, that doesn't seem like a valid quantity. Please try again.")
		return nil
	}

	res, err := c.shop.RemoveFromCart(sess.ID, name, qty)
	switch {
	case err == nil:
		c.printf("%d x %s removed from the cart.\n", res.Removed, res.Product)
	case errors.Is(err, cart.ErrNotInCart):
		c.printf("%s is not in the cart.\n", name)
	case errors.Is(err, cart.ErrInsufficientCartQuantity):
		c.printf("Cannot remove %d x %s. Only %d available in cart.\n", qty, name, res.Remaining)
	default:
		return err
	}
	return nil
}

// readLines feeds c.lines until the input ends. Scan cannot be interrupted,
// so the goroutine is left behind when Run returns while it is blocked.
func (c *Console) readLines() {
	defer close(c.lines)
	for c.in.Scan() {
		select {
		case c.lines <- inputLine{text: c.in.Text()}:
		case <-c.done:
			return
		}
	}
	if err := c.in.Err(); err != nil {
		select {
		case c.lines <- inputLine{err: fmt.Errorf("failed to read input: %w", err)}:
		case <-c.done:
		}
	}
}

func (c *Console) prompt(label string) (string, error) {
	if label != "" {
		fmt.Fprint(c.out, label)
	}
	select {
	case <-c.ctx.Done():
		return "", fmt.Errorf("%w: %w", errQuit, c.ctx.Err())
	case line, ok := <-c.lines:
		if !ok {
			return "", errQuit
		}
		return line.text, line.err
	}
}

func (c *Console) promptInt(label string) (int, error) {
	s, err := c.prompt(label)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(s))
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

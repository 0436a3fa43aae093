package checkout

import "errors"

var (
	ErrEmptyCart            = errors.New("cart is empty, nothing to checkout")
	ErrIllegalTransition    = errors.New("illegal transition of checkout state")
	ErrInvalidPaymentMethod = errors.New("payment method must be one of cash, card, pix")
)

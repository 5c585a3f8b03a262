package service

import (
	"github.com/calliehq/bramble/internal/domain"
)

// Bag errors
var (
	ErrBagEmpty = domain.Errorf(domain.EINVALID, "", "Your bag is empty")
)

// Checkout/payment errors
var (
	ErrMissingClientSecret = domain.Errorf(domain.EINVALID, "", "Missing payment confirmation reference")
	ErrPaymentNotSucceeded = domain.Errorf(domain.EPAYMENT, "", "Payment has not succeeded")
	ErrMissingPaymentRef   = domain.Errorf(domain.EINVALID, "", "Payment reference missing from event payload")
)

package jwttoken

import (
	authmw "vatgate/pkg/platform/middleware/auth"
)

// MiddlewareValidator exposes JWTService through the auth middleware's
// JWTValidator port so the middleware never imports golang-jwt.
type MiddlewareValidator struct {
	service *JWTService
}

func NewMiddlewareValidator(service *JWTService) *MiddlewareValidator {
	return &MiddlewareValidator{service: service}
}

func (v *MiddlewareValidator) ValidateToken(raw string) (*authmw.JWTClaims, error) {
	claims, err := v.service.ValidateToken(raw)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{AccountID: claims.AccountID(), JTI: claims.ID}, nil
}

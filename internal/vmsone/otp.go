package vmsone

import "context"

// SendOTP sends a one-time password to mobile.
func (c *Client) SendOTP(ctx context.Context, mobile string) (*Response, error) {
	return doPostJSON(ctx, c, "", c.endpoints.SendOTP, map[string]string{"mobile": mobile})
}

// VerifyOTP checks otp for mobile.
func (c *Client) VerifyOTP(ctx context.Context, mobile, otp string) (*Response, error) {
	return doPostJSON(ctx, c, "", c.endpoints.VerifyOTP, map[string]string{
		"mobile": mobile,
		"otp":    otp,
	})
}

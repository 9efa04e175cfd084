package http

import (
	"encoding/json"
	"errors"

	"github.com/piresc/trackwash/internal/pkg/models"
)

var errUnrecognisedCallback = errors.New("unrecognised callback payload")

// darajaCallback is the envelope Safaricom posts to the callback URL
type darajaCallback struct {
	Body struct {
		StkCallback *struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item []models.MpesaCallbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// flatCallback is the normalised shape relayed by proxies and tests
type flatCallback struct {
	MerchantRequestID string `json:"merchantRequestId"`
	CheckoutRequestID string `json:"checkoutRequestId"`
	ResultCode        *int   `json:"resultCode"`
	ResultDesc        string `json:"resultDesc"`
	CallbackMetadata  []struct {
		Name  string      `json:"name"`
		Value interface{} `json:"value"`
	} `json:"callbackMetadata"`
}

func parseCallback(body []byte) (models.MpesaCallback, error) {
	var envelope darajaCallback
	if err := json.Unmarshal(body, &envelope); err != nil {
		return models.MpesaCallback{}, err
	}
	if stk := envelope.Body.StkCallback; stk != nil {
		cb := models.MpesaCallback{
			MerchantRequestID: stk.MerchantRequestID,
			CheckoutRequestID: stk.CheckoutRequestID,
			ResultCode:        stk.ResultCode,
			ResultDesc:        stk.ResultDesc,
		}
		if stk.CallbackMetadata != nil {
			cb.Metadata = stk.CallbackMetadata.Item
		}
		return cb, nil
	}

	var flat flatCallback
	if err := json.Unmarshal(body, &flat); err != nil {
		return models.MpesaCallback{}, err
	}
	if flat.CheckoutRequestID == "" || flat.ResultCode == nil {
		return models.MpesaCallback{}, errUnrecognisedCallback
	}
	cb := models.MpesaCallback{
		MerchantRequestID: flat.MerchantRequestID,
		CheckoutRequestID: flat.CheckoutRequestID,
		ResultCode:        *flat.ResultCode,
		ResultDesc:        flat.ResultDesc,
	}
	for _, item := range flat.CallbackMetadata {
		cb.Metadata = append(cb.Metadata, models.MpesaCallbackItem{Name: item.Name, Value: item.Value})
	}
	return cb, nil
}

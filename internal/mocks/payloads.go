// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package mocks

import "fmt"

// STKCallback builds a push payment callback as Daraja delivers it. A zero
// result code includes the receipt metadata of a successful payment.
func STKCallback(checkoutRequestID string, resultCode int) []byte {
	if resultCode != 0 {
		return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":%q,"ResultCode":%d,"ResultDesc":"Request cancelled by user"}}}`, checkoutRequestID, resultCode))
	}
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":%q,"ResultCode":0,"ResultDesc":"The service request is processed successfully.","CallbackMetadata":{"Item":[{"Name":"Amount","Value":10},{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"},{"Name":"TransactionDate","Value":20191219102115},{"Name":"PhoneNumber","Value":254708374149}]}}}}`, checkoutRequestID))
}

// B2CResult builds a disbursement result.
func B2CResult(originatorConversationID, conversationID string, resultCode int) []byte {
	return []byte(fmt.Sprintf(`{"Result":{"ResultType":0,"ResultCode":%d,"ResultDesc":"The service request is processed successfully.","OriginatorConversationID":%q,"ConversationID":%q,"TransactionID":"NLJ41HAY6Q","ResultParameters":{"ResultParameter":[{"Key":"TransactionAmount","Value":250},{"Key":"TransactionReceipt","Value":"NLJ41HAY6Q"}]}}}`, resultCode, originatorConversationID, conversationID))
}

// B2CTimeout builds a disbursement queue timeout.
func B2CTimeout(originatorConversationID, conversationID string) []byte {
	return []byte(fmt.Sprintf(`{"Result":{"ResultType":0,"ResultDesc":"The request timed out in the queue","OriginatorConversationID":%q,"ConversationID":%q}}`, originatorConversationID, conversationID))
}

// C2BConfirmation builds a customer to business confirmation.
func C2BConfirmation(transID string) []byte {
	return []byte(fmt.Sprintf(`{"TransactionType":"Pay Bill","TransID":%q,"TransTime":"20191122063845","TransAmount":"10","BusinessShortCode":"600638","BillRefNumber":"INV1","MSISDN":"254708374149","FirstName":"John"}`, transID))
}

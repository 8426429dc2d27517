package document

import (
	"encoding/base64"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

func badRequest(err error) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode:      http.StatusBadRequest,
		Headers:         map[string]string{},
		IsBase64Encoded: false,
		Body:            validationMessage(err),
	}
}

func created(body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode:      http.StatusCreated,
		Headers:         map[string]string{"Content-Type": "application/json"},
		IsBase64Encoded: false,
		Body:            body,
	}
}

func gzipContent(data []byte) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode:      http.StatusOK,
		Headers:         map[string]string{"Content-Encoding": "gzip"},
		IsBase64Encoded: true,
		Body:            base64.StdEncoding.EncodeToString(data),
	}
}

package routeintent

import (
	"chat-assistant/internal/common/completion"
	"chat-assistant/internal/models"
)

const (
	FunctionQueryInventory  = "query_inventory"
	FunctionRegularResponse = "regular_response"
)

var userMessageParameters = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"user_message": map[string]interface{}{
			"type":        "string",
			"description": "The user's message, unchanged",
		},
	},
	"required": []interface{}{"user_message"},
}

// Catalog is the fixed action list offered to the model on every route.
var Catalog = completion.Catalog{
	{
		Name:        FunctionQueryInventory,
		Description: "Look up products in the store inventory: availability, prices, sizes, colors, brands or stock levels.",
		Parameters:  userMessageParameters,
	},
	{
		Name:        FunctionRegularResponse,
		Description: "Reply conversationally to greetings, small talk, or anything that is not a product lookup.",
		Parameters:  userMessageParameters,
	},
}

// dispatch is the static mapping from catalog names to router decisions.
var dispatch = map[string]models.FunctionKind{
	FunctionQueryInventory:  models.FunctionQueryRequest,
	FunctionRegularResponse: models.FunctionFreeformReply,
}

package validators

import "go.mongodb.org/mongo-driver/bson"

var ListingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"user_id", "name", "price", "rooms", "location", "city",
			"utilities", "parking", "pet_policy", "available",
			"status", "created_at", "updated_at",
		},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "objectId"},
			"user_id":    bson.M{"bsonType": "string", "minLength": 1},
			"name":       bson.M{"bsonType": "string", "minLength": 1},
			"price":      bson.M{"bsonType": "string", "minLength": 1},
			"rooms":      bson.M{"bsonType": "string", "minLength": 1},
			"location":   bson.M{"bsonType": "string", "minLength": 1},
			"city":       bson.M{"bsonType": "string", "minLength": 1},
			"utilities":  bson.M{"bsonType": "string", "minLength": 1},
			"parking":    bson.M{"bsonType": "string", "minLength": 1},
			"pet_policy": bson.M{"bsonType": "string", "minLength": 1},
			"available":  bson.M{"bsonType": "string", "minLength": 1},
			"note":       bson.M{"bsonType": "string"},
			"status":     bson.M{"enum": []string{"Available", "Rented"}},
			"created_at": bson.M{"bsonType": "date"},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}

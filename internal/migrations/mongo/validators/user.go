package validators

import "go.mongodb.org/mongo-driver/bson"

var UserValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"username", "username_lower", "password_hash"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":            bson.M{"bsonType": "objectId"},
			"username":       bson.M{"bsonType": "string", "minLength": 1},
			"username_lower": bson.M{"bsonType": "string", "minLength": 1},
			"name":           bson.M{"bsonType": "string"},
			// bcrypt hashes are 60 characters
			"password_hash": bson.M{"bsonType": "string", "minLength": 60},
		},
	},
}

package store

import (
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// docID is a document reference as stored in Mongo. Catalog records use
// string UUIDs; records created by the earlier Node service carry ObjectIds.
// An ObjectId is folded into a version 8 UUID so it survives the round trip
// back to the same _id.
type docID struct {
	uuid.UUID
}

func (d docID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if oid, ok := objectIDFromUUID(d.UUID); ok {
		return bson.MarshalValue(oid)
	}
	return bson.MarshalValue(d.UUID.String())
}

func (d *docID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.ObjectID:
		d.UUID = uuidFromObjectID(raw.ObjectID())
		return nil
	case bsontype.String:
		s := raw.StringValue()
		if s == "" {
			d.UUID = uuid.Nil
			return nil
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return fmt.Errorf("document id %q: %w", s, err)
		}
		d.UUID = id
		return nil
	case bsontype.Null, bsontype.Undefined:
		d.UUID = uuid.Nil
		return nil
	}
	return fmt.Errorf("document id: unsupported bson type %s", t)
}

// uuidFromObjectID spreads the 12 ObjectId bytes around the version and
// variant fields; the two trailing bytes stay zero.
func uuidFromObjectID(oid primitive.ObjectID) uuid.UUID {
	var u uuid.UUID
	copy(u[0:6], oid[0:6])
	u[6] = 0x80
	u[7] = oid[6]
	u[8] = 0x80
	copy(u[9:14], oid[7:12])
	return u
}

func objectIDFromUUID(u uuid.UUID) (primitive.ObjectID, bool) {
	var oid primitive.ObjectID
	if u[6] != 0x80 || u[8] != 0x80 || u[14] != 0 || u[15] != 0 {
		return oid, false
	}
	copy(oid[0:6], u[0:6])
	oid[6] = u[7]
	copy(oid[7:12], u[9:14])
	return oid, true
}

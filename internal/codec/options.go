package codec

// DefaultTypeKey is the reserved record key carrying an embedded type name.
const DefaultTypeKey = "#type"

// Options is the engine's policy surface. Every flag is independently
// toggleable; an engine and its registry share one Options value for their
// whole lifetime.
type Options struct {
	// SkipDefaults omits struct fields whose value equals the field's value
	// on the type's cached default instance.
	SkipDefaults bool `yaml:"skip_defaults"`
	// ErrorOnSpuriousData fails deserialization on record keys that match no
	// field of the target type. When off, unknown keys are ignored.
	ErrorOnSpuriousData bool `yaml:"error_on_spurious_data"`
	// ErrorOnSerializingNull fails serialization of nil values. When off,
	// nil serializes to null.
	ErrorOnSerializingNull bool `yaml:"error_on_serializing_null"`
	// ErrorOnUnexpectedCollections fails when a sequence or record is
	// expected but the input holds something else. When off, the offending
	// value becomes null.
	ErrorOnUnexpectedCollections bool `yaml:"error_on_unexpected_collections"`
	// ErrorOnUnknownTypes fails when an embedded type name cannot be
	// resolved. When off, the value becomes null.
	ErrorOnUnknownTypes bool `yaml:"error_on_unknown_types"`
	// TypeKey is the reserved record key holding an embedded type name.
	TypeKey string `yaml:"type_key"`
}

// DefaultOptions returns the engine defaults: diffing on, strict policies on,
// null serialization lenient, "#type" as the reserved key.
func DefaultOptions() Options {
	return Options{
		SkipDefaults:                 true,
		ErrorOnSpuriousData:          true,
		ErrorOnSerializingNull:       false,
		ErrorOnUnexpectedCollections: true,
		ErrorOnUnknownTypes:          true,
		TypeKey:                      DefaultTypeKey,
	}
}

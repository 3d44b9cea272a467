package models

// ThoughtRecord is one entry of the RPD journal (Registro de Pensamientos
// Disfuncionales). Field names are kept in Spanish because they are the
// wire and storage names clients already use.
type ThoughtRecord struct {
	ID          string `bson:"_id" json:"id"`
	Fecha       string `bson:"fecha,omitempty" json:"fecha,omitempty"`
	Situacion   string `bson:"situacion,omitempty" json:"situacion,omitempty"`
	Pensamiento string `bson:"pensamiento,omitempty" json:"pensamiento,omitempty"`
	Emocion     string `bson:"emocion,omitempty" json:"emocion,omitempty"`
	Respuesta   string `bson:"respuesta,omitempty" json:"respuesta,omitempty"`
	Resultado   string `bson:"resultado,omitempty" json:"resultado,omitempty"`
	User        string `bson:"user,omitempty" json:"user,omitempty"`
}

// ThoughtRecordInput is a write payload. A nil field was absent from the
// request and must not overwrite what is stored.
type ThoughtRecordInput struct {
	ID          string  `json:"id,omitempty"`
	Fecha       *string `json:"fecha,omitempty"`
	Situacion   *string `json:"situacion,omitempty"`
	Pensamiento *string `json:"pensamiento,omitempty"`
	Emocion     *string `json:"emocion,omitempty"`
	Respuesta   *string `json:"respuesta,omitempty"`
	Resultado   *string `json:"resultado,omitempty"`
}

// Fields returns the content fields present in the input, keyed by their
// storage name.
func (in ThoughtRecordInput) Fields() map[string]string {
	out := make(map[string]string, 6)
	set := func(key string, v *string) {
		if v != nil {
			out[key] = *v
		}
	}
	set("fecha", in.Fecha)
	set("situacion", in.Situacion)
	set("pensamiento", in.Pensamiento)
	set("emocion", in.Emocion)
	set("respuesta", in.Respuesta)
	set("resultado", in.Resultado)
	return out
}

// ThoughtRecordList is the GET /rpd envelope.
type ThoughtRecordList struct {
	TotalCount int                      `json:"totalCount"`
	Items      []map[string]interface{} `json:"items"`
}

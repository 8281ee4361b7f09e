package minibuf_test

import (
	"fmt"
	"log"

	"github.com/qnighy/minibuf"
	"github.com/qnighy/minibuf/schema"
)

func Example() {
	var node *schema.MessageType
	node = schema.MustDefineMessageType("Node",
		schema.Required("name", schema.String, 1),
		schema.Repeated("weights", schema.Float, 2),
		schema.Repeated("children", schema.Lazy(func() schema.Type[schema.Message] { return node }), 3),
	)

	data, err := minibuf.Encode(schema.Message{
		"name":    "root",
		"weights": []float32{0.5},
		"children": []schema.Message{
			{"name": "leaf"},
		},
	}, node)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("% x\n", data)

	decoded, err := minibuf.Decode(data, node)
	if err != nil {
		log.Fatal(err)
	}
	children := decoded["children"].([]schema.Message)
	fmt.Println(decoded["name"], decoded["weights"], children[0]["name"])
	// Output:
	// 0a 04 72 6f 6f 74 12 04 00 00 00 3f 1a 06 0a 04 6c 65 61 66
	// root [0.5] leaf
}

func ExampleParse() {
	fields, err := minibuf.Parse([]byte{0x08, 0x96, 0x01})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(fields["field_1"])
	// Output: map[type:varint value:150]
}

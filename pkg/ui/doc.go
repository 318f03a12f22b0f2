/*
Package ui describes the content of an operator prompt as a tree of Elements.

Elements form a closed set of variants. Static variants (Text, Image,
TextInput, Select, StaticFlex) can be serialized as-is. Dynamic variants
(Flex with dynamic children, Dynamic) must first be resolved into a static
tree, which runs every Dynamic producer exactly once.

# Key Components

  - Element / StaticElement: sealed interfaces implemented only by this package.
  - Resolver: turns an Element tree into a StaticElement tree with a depth bound.
  - Serialize: turns a StaticElement tree into a JSON-compatible map.
  - Decode / ParseYAML / ParseJSON: the inverse of Serialize, for authored files.

# Usage

	input, err := ui.NewTextInput("serial number")
	if err != nil {
		return err
	}
	root := ui.NewFlex(ui.TopDown, ui.NewText("Enter SN"), input)

	static, err := ui.Resolve(root)
	if err != nil {
		return err
	}
	payload := ui.Serialize(static)
*/
package ui

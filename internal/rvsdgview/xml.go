package rvsdgview

import (
	"encoding/xml"
	"fmt"

	"rvsdgc/internal/rvsdg"
)

// ViewXML renders region as XML with a stable hex identity for nodes,
// inputs, outputs, regions, and edges. Identity is a dump-local
// sequence number assigned in depth-first visitation order, formatted
// as hex, since no exported arena-index accessor exists on package
// rvsdg's types.
func ViewXML(region *rvsdg.Region) (string, error) {
	ids := map[interface{}]string{}
	next := 0
	hexID := func(v interface{}) string {
		if id, ok := ids[v]; ok {
			return id
		}
		id := fmt.Sprintf("0x%x", next)
		next++
		ids[v] = id
		return id
	}

	root := buildXMLRegion(region, hexID)
	out, err := xml.MarshalIndent(root, "", "  ")
	if err != nil {
		return "", err
	}
	return xml.Header + string(out), nil
}

type xmlRegion struct {
	XMLName   xml.Name  `xml:"region"`
	ID        string    `xml:"id,attr"`
	Arguments []xmlEdge `xml:"argument"`
	Nodes     []xmlNode `xml:"node"`
	Results   []xmlEdge `xml:"result"`
}

type xmlNode struct {
	XMLName    xml.Name    `xml:"node"`
	ID         string      `xml:"id,attr"`
	Label      string      `xml:"label,attr"`
	Inputs     []xmlEdge   `xml:"input"`
	Subregions []xmlRegion `xml:"subregion"`
}

type xmlEdge struct {
	XMLName xml.Name `xml:"edge"`
	ID      string   `xml:"id,attr"`
	Type    string   `xml:"type,attr"`
	Origin  string   `xml:"origin,attr,omitempty"`
}

func buildXMLRegion(region *rvsdg.Region, hexID func(interface{}) string) xmlRegion {
	r := xmlRegion{ID: hexID(region)}
	for _, arg := range region.Arguments() {
		r.Arguments = append(r.Arguments, xmlEdge{ID: hexID(arg), Type: arg.Type.String()})
	}
	for _, n := range region.Nodes() {
		r.Nodes = append(r.Nodes, buildXMLNode(n, hexID))
	}
	for _, res := range region.Results() {
		e := xmlEdge{ID: hexID(res), Type: res.Type.String()}
		if res.Origin() != nil {
			e.Origin = hexID(res.Origin())
		}
		r.Results = append(r.Results, e)
	}
	return r
}

func buildXMLNode(n *rvsdg.Node, hexID func(interface{}) string) xmlNode {
	xn := xmlNode{ID: hexID(n), Label: n.DebugLabel()}
	for _, in := range n.Inputs() {
		e := xmlEdge{ID: hexID(in), Type: in.Type.String()}
		if in.Origin() != nil {
			e.Origin = hexID(in.Origin())
		}
		xn.Inputs = append(xn.Inputs, e)
	}
	for _, sub := range n.Subregions() {
		xn.Subregions = append(xn.Subregions, buildXMLRegion(sub, hexID))
	}
	return xn
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hierarchy

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// maxTypeDepth bounds restriction chains so a cyclic schema cannot loop.
const maxTypeDepth = 32

// typeRef names a simple type by QName or carries an anonymous simpleType.
// The zero value is anySimpleType.
type typeRef struct {
	name   string
	inline *Node
}

// typeOf returns the simple type of an attribute or element declaration.
func typeOf(decl *Node) typeRef {
	if t, ok := decl.AttrValue("type"); ok {
		return typeRef{name: t}
	}
	if st := xsdChild(decl, "simpleType"); st != nil {
		return typeRef{inline: st}
	}
	return typeRef{}
}

// checkSimple reports whether value is in the lexical space of ref,
// including the facets of every restriction step.
func (s *Schema) checkSimple(ref typeRef, value string, depth int) error {
	if depth > maxTypeDepth {
		return nil
	}
	st := ref.inline
	if st == nil {
		if ref.name == "" {
			return nil
		}
		local := localName(ref.name)
		named, ok := s.simple[local]
		if !ok {
			return checkBuiltin(local, value)
		}
		st = named
	}

	for _, c := range st.Children {
		if c.Name.Space != xsdNS {
			continue
		}
		switch c.Name.Local {
		case "restriction":
			base := typeRef{}
			if b, ok := c.AttrValue("base"); ok {
				base.name = b
			} else if inner := xsdChild(c, "simpleType"); inner != nil {
				base.inline = inner
			}
			if err := s.checkSimple(base, value, depth+1); err != nil {
				return err
			}
			return s.checkFacets(c, value)
		case "list":
			item := typeRef{}
			if t, ok := c.AttrValue("itemType"); ok {
				item.name = t
			} else if inner := xsdChild(c, "simpleType"); inner != nil {
				item.inline = inner
			}
			for _, v := range strings.Fields(value) {
				if err := s.checkSimple(item, v, depth+1); err != nil {
					return fmt.Errorf("list item %q: %w", v, err)
				}
			}
			return nil
		case "union":
			var members []typeRef
			if mt, ok := c.AttrValue("memberTypes"); ok {
				for _, name := range strings.Fields(mt) {
					members = append(members, typeRef{name: name})
				}
			}
			for _, inner := range c.Children {
				if inner.Name.Space == xsdNS && inner.Name.Local == "simpleType" {
					members = append(members, typeRef{inline: inner})
				}
			}
			for _, m := range members {
				if s.checkSimple(m, value, depth+1) == nil {
					return nil
				}
			}
			if len(members) == 0 {
				return nil
			}
			return fmt.Errorf("matches none of the union member types")
		}
	}
	return nil
}

// checkFacets applies the constraining facets of one restriction step.
func (s *Schema) checkFacets(r *Node, value string) error {
	var enum, patterns []string
	for _, f := range r.Children {
		if f.Name.Space != xsdNS {
			continue
		}
		fv, _ := f.AttrValue("value")
		switch f.Name.Local {
		case "enumeration":
			enum = append(enum, fv)
		case "pattern":
			patterns = append(patterns, fv)
		case "length", "minLength", "maxLength":
			limit, err := strconv.Atoi(fv)
			if err != nil {
				continue
			}
			n := utf8.RuneCountInString(value)
			if (f.Name.Local == "length" && n != limit) ||
				(f.Name.Local == "minLength" && n < limit) ||
				(f.Name.Local == "maxLength" && n > limit) {
				return fmt.Errorf("length %d violates %s %d", n, f.Name.Local, limit)
			}
		case "minInclusive", "maxInclusive", "minExclusive", "maxExclusive":
			bound, err1 := strconv.ParseFloat(fv, 64)
			v, err2 := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err1 != nil || err2 != nil {
				continue
			}
			ok := true
			switch f.Name.Local {
			case "minInclusive":
				ok = v >= bound
			case "maxInclusive":
				ok = v <= bound
			case "minExclusive":
				ok = v > bound
			case "maxExclusive":
				ok = v < bound
			}
			if !ok {
				return fmt.Errorf("violates %s %s", f.Name.Local, fv)
			}
		}
	}
	if len(enum) > 0 && !slices.Contains(enum, value) {
		return fmt.Errorf("not in %v", enum)
	}
	if len(patterns) > 0 {
		matched := false
		for _, p := range patterns {
			re := s.pattern(p)
			if re == nil || re.MatchString(value) {
				matched = true
				break
			}
		}
		if !matched {
			return fmt.Errorf("does not match pattern %q", strings.Join(patterns, "|"))
		}
	}
	return nil
}

// pattern compiles an XSD pattern facet, which is implicitly anchored.
// Patterns using XSD-only escapes do not compile and are not enforced.
func (s *Schema) pattern(p string) *regexp.Regexp {
	if re, ok := s.patterns[p]; ok {
		return re
	}
	re, err := regexp.Compile(`^(?:` + p + `)$`)
	if err != nil {
		re = nil
	}
	s.patterns[p] = re
	return re
}

var (
	reInteger  = regexp.MustCompile(`^[+-]?[0-9]+$`)
	reDecimal  = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)
	reFloat    = regexp.MustCompile(`^([+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][+-]?[0-9]+)?|-?INF|\+INF|NaN)$`)
	reDateTime = regexp.MustCompile(`^-?([0-9]{4,})-([0-9]{2})-([0-9]{2})T([0-9]{2}):([0-9]{2}):([0-9]{2})(\.[0-9]+)?(Z|[+-][0-9]{2}:[0-9]{2})?$`)
	reDate     = regexp.MustCompile(`^-?([0-9]{4,})-([0-9]{2})-([0-9]{2})(Z|[+-][0-9]{2}:[0-9]{2})?$`)
	reTime     = regexp.MustCompile(`^([0-9]{2}):([0-9]{2}):([0-9]{2})(\.[0-9]+)?(Z|[+-][0-9]{2}:[0-9]{2})?$`)
)

var intBits = map[string]int{"long": 64, "int": 32, "short": 16, "byte": 8}

var uintBits = map[string]int{"unsignedLong": 64, "unsignedInt": 32, "unsignedShort": 16, "unsignedByte": 8}

// checkBuiltin checks value against the lexical space of a built-in XSD
// type. String-like types accept any value.
func checkBuiltin(local, raw string) error {
	v := strings.TrimSpace(raw)
	ok := true
	switch local {
	case "boolean":
		ok = v == "true" || v == "false" || v == "1" || v == "0"
	case "decimal":
		ok = reDecimal.MatchString(v)
	case "float", "double":
		ok = reFloat.MatchString(v)
	case "integer":
		ok = reInteger.MatchString(v)
	case "nonNegativeInteger":
		ok = reInteger.MatchString(v) && (!strings.HasPrefix(v, "-") || isZero(v))
	case "positiveInteger":
		ok = reInteger.MatchString(v) && !strings.HasPrefix(v, "-") && !isZero(v)
	case "nonPositiveInteger":
		ok = reInteger.MatchString(v) && (strings.HasPrefix(v, "-") || isZero(v))
	case "negativeInteger":
		ok = reInteger.MatchString(v) && strings.HasPrefix(v, "-") && !isZero(v)
	case "long", "int", "short", "byte":
		_, err := strconv.ParseInt(v, 10, intBits[local])
		ok = err == nil
	case "unsignedLong", "unsignedInt", "unsignedShort", "unsignedByte":
		_, err := strconv.ParseUint(strings.TrimPrefix(v, "+"), 10, uintBits[local])
		ok = err == nil
	case "dateTime":
		ok = validDateTime(v)
	case "date":
		m := reDate.FindStringSubmatch(v)
		ok = m != nil && validDate(m[1], m[2], m[3]) && validZone(m[4])
	case "time":
		m := reTime.FindStringSubmatch(v)
		ok = m != nil && validClock(m[1], m[2], m[3]) && validZone(m[5])
	case "hexBinary":
		_, err := hex.DecodeString(v)
		ok = err == nil
	case "base64Binary":
		_, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(v), ""))
		ok = err == nil
	}
	if !ok {
		return fmt.Errorf("not a valid xsd:%s", local)
	}
	return nil
}

func isZero(v string) bool {
	return strings.Trim(v, "+-0") == ""
}

func validDateTime(v string) bool {
	m := reDateTime.FindStringSubmatch(v)
	return m != nil && validDate(m[1], m[2], m[3]) && validClock(m[4], m[5], m[6]) && validZone(m[8])
}

func validDate(year, month, day string) bool {
	y, err := strconv.Atoi(year)
	if err != nil {
		return false
	}
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if mo < 1 || mo > 12 || d < 1 {
		return false
	}
	return d <= time.Date(y, time.Month(mo)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func validClock(hour, minute, second string) bool {
	h, _ := strconv.Atoi(hour)
	mi, _ := strconv.Atoi(minute)
	sec, _ := strconv.Atoi(second)
	if h == 24 {
		return mi == 0 && sec == 0
	}
	return h < 24 && mi < 60 && sec < 60
}

func validZone(zone string) bool {
	if zone == "" || zone == "Z" {
		return true
	}
	h, _ := strconv.Atoi(zone[1:3])
	m, _ := strconv.Atoi(zone[4:6])
	return h <= 14 && m < 60 && (h < 14 || m == 0)
}

// xsdChild returns the first child of n in the XSD namespace named local.
func xsdChild(n *Node, local string) *Node {
	for _, c := range n.Children {
		if c.Name.Space == xsdNS && c.Name.Local == local {
			return c
		}
	}
	return nil
}

package e2e_test

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/onsi/gomega/types"
)

// ContainXMLElementMatcher is a Gomega matcher that checks if an XML string
// contains an element matching the given XPath expression and optionally its value.
type ContainXMLElementMatcher struct {
	XPath string
	Value string // Optional: if provided, checks the element's text content
}

// ContainXMLElement creates a new ContainXMLElementMatcher.
func ContainXMLElement(xpath string) types.GomegaMatcher {
	return &ContainXMLElementMatcher{XPath: xpath}
}

// ContainXMLElementWithValue also checks the element's text content.
func ContainXMLElementWithValue(xpath, value string) types.GomegaMatcher {
	return &ContainXMLElementMatcher{XPath: xpath, Value: value}
}

func (matcher *ContainXMLElementMatcher) Match(actual interface{}) (success bool, err error) {
	var actualString string
	switch v := actual.(type) {
	case string:
		actualString = v
	case []byte:
		actualString = string(v)
	default:
		return false, fmt.Errorf("ContainXMLElementMatcher expects a string or []byte. Got: %T", actual)
	}

	doc, err := xmlquery.Parse(strings.NewReader(actualString))
	if err != nil {
		return false, fmt.Errorf("failed to parse XML: %w", err)
	}

	node := xmlquery.FindOne(doc, matcher.XPath)
	if node == nil {
		return false, nil
	}
	if matcher.Value != "" && node.InnerText() != matcher.Value {
		return false, nil
	}
	return true, nil
}

func (matcher *ContainXMLElementMatcher) FailureMessage(actual interface{}) (message string) {
	if matcher.Value != "" {
		return fmt.Sprintf("Expected XML to contain element matching XPath '%s' with value '%s'. Got:\n%v", matcher.XPath, matcher.Value, actual)
	}
	return fmt.Sprintf("Expected XML to contain element matching XPath '%s'. Got:\n%v", matcher.XPath, actual)
}

func (matcher *ContainXMLElementMatcher) NegatedFailureMessage(actual interface{}) (message string) {
	if matcher.Value != "" {
		return fmt.Sprintf("Expected XML NOT to contain element matching XPath '%s' with value '%s'. Got:\n%v", matcher.XPath, matcher.Value, actual)
	}
	return fmt.Sprintf("Expected XML NOT to contain element matching XPath '%s'. Got:\n%v", matcher.XPath, actual)
}

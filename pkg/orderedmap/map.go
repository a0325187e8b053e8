// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package orderedmap

type Map struct {
	items []MapItem
}

type MapItem struct {
	Key   string
	Value interface{}
}

func NewMap() *Map {
	return &Map{}
}

func NewMapWithItems(items []MapItem) *Map {
	return &Map{items}
}

func (m *Map) Set(key string, value interface{}) {
	for i, item := range m.items {
		if item.Key == key {
			item.Value = value
			m.items[i] = item
			return
		}
	}
	m.items = append(m.items, MapItem{key, value})
}

func (m *Map) Get(key string) (interface{}, bool) {
	for _, item := range m.items {
		if item.Key == key {
			return item.Value, true
		}
	}
	return nil, false
}

func (m *Map) Delete(key string) bool {
	for i, item := range m.items {
		if item.Key == key {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.items)
}

func (m *Map) Keys() []string {
	var keys []string
	for _, item := range m.items {
		keys = append(keys, item.Key)
	}
	return keys
}

// Iterate visits items in insertion order.
func (m *Map) Iterate(iterFunc func(k string, v interface{})) {
	if m == nil {
		return
	}
	for _, item := range m.items {
		iterFunc(item.Key, item.Value)
	}
}

func (m *Map) DeepCopy() *Map {
	newItems := make([]MapItem, len(m.items))
	copy(newItems, m.items)
	return &Map{newItems}
}

// AsGoMap flattens into a plain Go map, losing ordering.
func (m *Map) AsGoMap() map[string]interface{} {
	result := map[string]interface{}{}
	m.Iterate(func(k string, v interface{}) { result[k] = v })
	return result
}

// Package reference хранит справочники сессии импорта. Кэш передается явно
// в схему проверки и автозаполнение.
package reference

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"loader/internal/model"
)

// Source внешний источник справочников
type Source interface {
	ListItems(ctx context.Context, id model.ListID) ([]model.RefItem, error)
	ListStreets(ctx context.Context, settlementID int64) ([]model.RefItem, error)
	ListDevices(ctx context.Context) ([]model.Device, error)
	ListIPAddresses(ctx context.Context) ([]model.IPAddress, error)
	ListProtocols(ctx context.Context) ([]model.Protocol, error)
}

// Cache справочники одной сессии
type Cache struct {
	source Source

	mu            sync.RWMutex
	items         map[model.ListID][]model.RefItem
	devices       []model.Device
	devicesLoaded bool
	ips           []model.IPAddress
	ipsLoaded     bool
	protocols     []model.Protocol
	protoLoaded   bool
	streets       map[string][]string

	flight singleflight.Group
}

// NewCache создает пустой кэш
func NewCache(source Source) *Cache {
	return &Cache{
		source:  source,
		items:   make(map[model.ListID][]model.RefItem),
		streets: make(map[string][]string),
	}
}

// HasSource подключен ли внешний источник
func (c *Cache) HasSource() bool {
	return c.source != nil
}

// LoadAll загружает все справочники одной пачкой.
// Ошибка одного справочника не мешает остальным: он остается незагруженным.
func (c *Cache) LoadAll(ctx context.Context) error {
	if c.source == nil {
		return nil
	}
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	fail := func(what string, err error) {
		log.Printf("загрузка справочника %s: %v", what, err)
		mu.Lock()
		errs = append(errs, fmt.Errorf("%s: %w", what, err))
		mu.Unlock()
	}

	for _, id := range model.NamedLists {
		id := id
		g.Go(func() error {
			items, err := c.source.ListItems(ctx, id)
			if err != nil {
				fail(string(id), err)
				return nil
			}
			c.SetItems(id, items)
			return nil
		})
	}
	g.Go(func() error {
		devices, err := c.source.ListDevices(ctx)
		if err != nil {
			fail(string(model.ListDeviceModels), err)
			return nil
		}
		c.SetDevices(devices)
		return nil
	})
	g.Go(func() error {
		ips, err := c.source.ListIPAddresses(ctx)
		if err != nil {
			fail(string(model.ListIPAddresses), err)
			return nil
		}
		c.SetIPAddresses(ips)
		return nil
	})
	g.Go(func() error {
		protocols, err := c.source.ListProtocols(ctx)
		if err != nil {
			fail(string(model.ListProtocols), err)
			return nil
		}
		c.SetProtocols(protocols)
		return nil
	})

	_ = g.Wait()
	return errors.Join(errs...)
}

// SetItems заменяет справочник
func (c *Cache) SetItems(id model.ListID, items []model.RefItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id] = append([]model.RefItem(nil), items...)
}

// SetDevices заменяет справочник моделей счетчиков
func (c *Cache) SetDevices(devices []model.Device) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices = append([]model.Device(nil), devices...)
	c.devicesLoaded = true
}

// SetIPAddresses заменяет справочник IP адресов
func (c *Cache) SetIPAddresses(ips []model.IPAddress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ips = append([]model.IPAddress(nil), ips...)
	c.ipsLoaded = true
}

// SetProtocols заменяет справочник протоколов
func (c *Cache) SetProtocols(protocols []model.Protocol) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.protocols = append([]model.Protocol(nil), protocols...)
	c.protoLoaded = true
}

// SetStreets кладет улицы населенного пункта в кэш
func (c *Cache) SetStreets(settlement string, streets []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streets[settlement] = append([]string(nil), streets...)
}

// AddItem добавляет созданный в ходе сессии элемент в уже загруженный справочник.
// Незагруженный список остается незагруженным, иначе проверка стала бы строгой по неполным данным.
func (c *Cache) AddItem(id model.ListID, item model.RefItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if list, ok := c.items[id]; ok {
		c.items[id] = append(list, item)
	}
}

// AddStreet добавляет созданную улицу в уже загруженный список населенного пункта
func (c *Cache) AddStreet(settlement, street string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if list, ok := c.streets[settlement]; ok {
		c.streets[settlement] = append(list, street)
	}
}

// Items элементы справочника и признак загрузки
func (c *Cache) Items(id model.ListID) ([]model.RefItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items, ok := c.items[id]
	return append([]model.RefItem(nil), items...), ok
}

// Names имена элементов справочника
func (c *Cache) Names(id model.ListID) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch id {
	case model.ListDeviceModels:
		if !c.devicesLoaded {
			return nil, false
		}
		out := make([]string, 0, len(c.devices))
		for _, d := range c.devices {
			out = append(out, d.Name)
		}
		return out, true
	case model.ListIPAddresses:
		if !c.ipsLoaded {
			return nil, false
		}
		out := make([]string, 0, len(c.ips))
		for _, ip := range c.ips {
			out = append(out, ip.Address)
		}
		return out, true
	case model.ListProtocols:
		if !c.protoLoaded {
			return nil, false
		}
		out := make([]string, 0, len(c.protocols))
		for _, p := range c.protocols {
			out = append(out, p.Name)
		}
		return out, true
	}

	items, ok := c.items[id]
	if !ok {
		return nil, false
	}
	return model.Names(items), true
}

// Streets улицы населенного пункта; loaded=false если еще не запрашивались
func (c *Cache) Streets(settlement string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list, ok := c.streets[settlement]
	if !ok {
		return nil, false
	}
	return append([]string(nil), list...), true
}

// HasStreets запрашивались ли уже улицы населенного пункта
func (c *Cache) HasStreets(settlement string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.streets[settlement]
	return ok
}

// Devices справочник моделей счетчиков
func (c *Cache) Devices() []model.Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Device(nil), c.devices...)
}

// IPAddresses справочник IP адресов
func (c *Cache) IPAddresses() []model.IPAddress {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.IPAddress(nil), c.ips...)
}

// Protocols справочник протоколов
func (c *Cache) Protocols() []model.Protocol {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Protocol(nil), c.protocols...)
}

// SettlementID ищет идентификатор населенного пункта по имени
func (c *Cache) SettlementID(name string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.items[model.ListSettlements] {
		if it.Name == name {
			return it.ID, true
		}
	}
	return 0, false
}

// EnsureStreets догружает улицы для перечисленных населенных пунктов.
// Повторно уже загруженные пункты не запрашиваются; разные пункты грузятся параллельно,
// одинаковые запросы из разных горутин схлопываются. Возвращается после завершения всех запросов.
func (c *Cache) EnsureStreets(ctx context.Context, settlements []string) error {
	if c.source == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(settlements))
	var g errgroup.Group
	var (
		mu   sync.Mutex
		errs []error
	)

	for _, name := range settlements {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if c.HasStreets(name) {
			continue
		}

		name := name
		g.Go(func() error {
			if err := c.loadStreets(ctx, name); err != nil {
				log.Printf("загрузка улиц для %q: %v", name, err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}

func (c *Cache) loadStreets(ctx context.Context, settlement string) error {
	_, err, _ := c.flight.Do(settlement, func() (interface{}, error) {
		if c.HasStreets(settlement) {
			return nil, nil
		}
		id, ok := c.SettlementID(settlement)
		if !ok {
			return nil, nil
		}
		items, err := c.source.ListStreets(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("streets of %s: %w", settlement, err)
		}
		c.SetStreets(settlement, model.Names(items))
		return nil, nil
	})
	return err
}

// Package biztest 业务层测试用的内存仓储
package biztest

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/taskflow/server/internal/biz/audit"
	"github.com/taskflow/server/internal/biz/directory"
	"github.com/taskflow/server/internal/biz/event"
	"github.com/taskflow/server/internal/biz/period"
	"github.com/taskflow/server/internal/biz/recurring"
	"github.com/taskflow/server/internal/biz/status"
	"github.com/taskflow/server/internal/biz/task"
	"github.com/taskflow/server/internal/domain/errs"
)

// Store 共享一把锁的全部内存表
type Store struct {
	mu sync.Mutex

	Tasks     *Tasks
	Directory *Directory
	Audit     *Audit
	Events    *Events
	Periods   *Periods
	Recurring *Recurring
	Statuses  *Statuses
}

func NewStore() *Store {
	s := &Store{}
	s.Tasks = &Tasks{s: s, byID: map[uint64]*task.Task{}, reports: map[uint64]*task.Report{}}
	s.Directory = &Directory{s: s, Users: map[uint64]*directory.User{}, Roles: map[uint64]*directory.Role{}, Units: map[uint64]string{}, Groups: map[uint64][]uint64{}}
	s.Audit = &Audit{s: s}
	s.Events = &Events{s: s}
	s.Periods = &Periods{s: s}
	s.Recurring = &Recurring{s: s, templates: map[uint64]*recurring.Template{}}
	s.Statuses = &Statuses{s: s}
	return s
}

type Tasks struct {
	s       *Store
	seq     uint64
	byID    map[uint64]*task.Task
	reports map[uint64]*task.Report
	// FailGetReport 让 GetReport 失败，用于验证尽力而为的路径
	FailGetReport error
}

var _ task.Repo = (*Tasks)(nil)

func (r *Tasks) Create(_ context.Context, t *task.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.seq++
	t.ID = r.seq
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	r.byID[t.ID] = &cp
	return nil
}

func (r *Tasks) GetByID(_ context.Context, id uint64) (*task.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *Tasks) GetForUpdate(ctx context.Context, id uint64) (*task.Task, error) {
	return r.GetByID(ctx, id)
}

func (r *Tasks) Update(_ context.Context, id uint64, patch *task.TaskPatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return errs.NotFound(errs.CodeTaskNotFound, "task not found")
	}
	t.Apply(patch)
	t.UpdatedAt = time.Now()
	return nil
}

func (r *Tasks) FindActiveByTemplate(_ context.Context, filter task.TemplateTaskFilter, _ bool) ([]*task.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*task.Task
	for _, t := range r.byID {
		if t.TemplateID == nil || *t.TemplateID != filter.TemplateID || t.PeriodID != filter.PeriodID {
			continue
		}
		if t.IsArchived() || !t.Scope.SameAs(filter.Scope) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *task.Task) int { return int(a.ID) - int(b.ID) })
	return out, nil
}

func (r *Tasks) GetReport(_ context.Context, taskID uint64) (*task.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.FailGetReport != nil {
		return nil, r.FailGetReport
	}
	rep, ok := r.reports[taskID]
	if !ok {
		return nil, nil
	}
	cp := *rep
	return &cp, nil
}

func (r *Tasks) UpsertReport(_ context.Context, report *task.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if old, ok := r.reports[report.TaskID]; ok {
		report.ID = old.ID
	} else {
		report.ID = uint64(len(r.reports) + 1)
	}
	report.ApprovedAt = nil
	report.ApprovedBy = nil
	cp := *report
	r.reports[report.TaskID] = &cp
	return nil
}

func (r *Tasks) SetReportApproval(_ context.Context, taskID uint64, approvedAt *time.Time, approvedBy *uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rep, ok := r.reports[taskID]
	if !ok {
		return errs.Conflict(errs.CodeTaskConflictNoReport, "no report")
	}
	rep.ApprovedAt = approvedAt
	rep.ApprovedBy = approvedBy
	return nil
}

// All 按ID升序的全部任务快照
func (r *Tasks) All() []*task.Task {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := lo.MapToSlice(r.byID, func(_ uint64, t *task.Task) *task.Task {
		cp := *t
		return &cp
	})
	slices.SortFunc(out, func(a, b *task.Task) int { return int(a.ID) - int(b.ID) })
	return out
}

type Directory struct {
	s        *Store
	Users    map[uint64]*directory.User
	Roles    map[uint64]*directory.Role
	Units    map[uint64]string
	Groups   map[uint64][]uint64 // user -> groups
	FailRole error
	// FailBindings 让外部账号查询失败
	FailBindings error
}

var _ directory.Repo = (*Directory)(nil)

func (r *Directory) AddRole(id uint64, name string) {
	r.Roles[id] = &directory.Role{ID: id, Name: name}
}

func (r *Directory) AddUser(id, roleID uint64, externalID string) *directory.User {
	u := &directory.User{ID: id, FullName: "user", RoleID: roleID, Active: true}
	if externalID != "" {
		u.ExternalID = lo.ToPtr(externalID)
	}
	r.Users[id] = u
	return u
}

func (r *Directory) Principal(_ context.Context, userID uint64) (*directory.Principal, error) {
	u, ok := r.Users[userID]
	if !ok || !u.Active {
		return nil, nil
	}
	pr := &directory.Principal{UserID: u.ID, RoleID: u.RoleID, GroupIDs: r.Groups[u.ID]}
	if u.UnitID != nil {
		pr.UnitPath = r.Units[*u.UnitID]
	}
	return pr, nil
}

func (r *Directory) GetUser(_ context.Context, userID uint64) (*directory.User, error) {
	return r.Users[userID], nil
}

func (r *Directory) ActiveUserIDsByRoles(_ context.Context, roleIDs []uint64) ([]uint64, error) {
	var out []uint64
	for _, u := range r.Users {
		if u.Active && lo.Contains(roleIDs, u.RoleID) {
			out = append(out, u.ID)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (r *Directory) ExternalBindings(_ context.Context, userIDs []uint64) (map[uint64]string, error) {
	if r.FailBindings != nil {
		return nil, r.FailBindings
	}
	out := map[uint64]string{}
	for _, id := range userIDs {
		if u, ok := r.Users[id]; ok && u.ExternalID != nil {
			out[id] = *u.ExternalID
		}
	}
	return out, nil
}

func (r *Directory) GetRole(_ context.Context, roleID uint64) (*directory.Role, error) {
	if r.FailRole != nil {
		return nil, r.FailRole
	}
	return r.Roles[roleID], nil
}

func (r *Directory) UnitPath(_ context.Context, unitID uint64) (string, error) {
	return r.Units[unitID], nil
}

type Audit struct {
	s       *Store
	Entries []*audit.Entry
}

var _ audit.Repo = (*Audit)(nil)

func (r *Audit) Insert(_ context.Context, entry *audit.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = uint64(len(r.Entries) + 1)
	entry.CreatedAt = time.Now()
	cp := *entry
	r.Entries = append(r.Entries, &cp)
	return nil
}

func (r *Audit) UpdateLastEvent(_ context.Context, taskID uint64, eventType string, payload json.RawMessage) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.Entries) - 1; i >= 0; i-- {
		if e := r.Entries[i]; e.TaskID == taskID {
			e.EventType = lo.ToPtr(eventType)
			e.EventPayload = payload
			return e.ID, nil
		}
	}
	return 0, nil
}

// Actions 某任务的审计动作序列
func (r *Audit) Actions(taskID uint64) []string {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return lo.FilterMap(r.Entries, func(e *audit.Entry, _ int) (string, bool) {
		return e.Action, e.TaskID == taskID
	})
}

type Events struct {
	s          *Store
	Events     []*event.Event
	Recipients map[uint64][]uint64
	Deliveries []*event.Delivery
	// Held 被其他分发实例锁住的投递
	Held []uint64
	// FailMarkFailed 让 MarkFailed 失败
	FailMarkFailed error
}

var _ event.Repo = (*Events)(nil)

func (r *Events) InsertEvent(_ context.Context, ev *event.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ev.ID = uint64(len(r.Events) + 1)
	cp := *ev
	r.Events = append(r.Events, &cp)
	return nil
}

func (r *Events) InsertRecipients(_ context.Context, eventID uint64, userIDs []uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.Recipients == nil {
		r.Recipients = map[uint64][]uint64{}
	}
	r.Recipients[eventID] = lo.Uniq(append(r.Recipients[eventID], userIDs...))
	return nil
}

func (r *Events) InsertDeliveries(_ context.Context, deliveries []*event.Delivery) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range deliveries {
		dup := lo.ContainsBy(r.Deliveries, func(x *event.Delivery) bool {
			return x.EventID == d.EventID && x.UserID == d.UserID && x.Channel == d.Channel
		})
		if dup {
			continue
		}
		d.ID = uint64(len(r.Deliveries) + 1)
		cp := *d
		r.Deliveries = append(r.Deliveries, &cp)
	}
	return nil
}

func (r *Events) ListForUser(_ context.Context, filter event.ListFilter) ([]*event.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*event.Event
	for _, ev := range r.Events {
		if ev.AuditID <= filter.Cursor || !lo.Contains(r.Recipients[ev.ID], filter.UserID) {
			continue
		}
		if filter.Type != nil && ev.Type != *filter.Type {
			continue
		}
		if t, ok := r.s.Tasks.byID[ev.TaskID]; ok && t.IsArchived() {
			continue
		}
		cp := *ev
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *event.Event) int { return int(a.AuditID) - int(b.AuditID) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *Events) ListPending(_ context.Context, channel string, limit int, maxAttempts int) ([]*event.PendingDelivery, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*event.PendingDelivery
	for _, d := range r.Deliveries {
		if d.Channel != channel || d.Status != event.DeliveryPending || (maxAttempts > 0 && d.Attempts >= maxAttempts) {
			continue
		}
		ev, _ := lo.Find(r.Events, func(e *event.Event) bool { return e.ID == d.EventID })
		pd := &event.PendingDelivery{Delivery: *d}
		if ev != nil {
			pd.Event = *ev
		}
		out = append(out, pd)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *Events) LockPending(_ context.Context, deliveryID uint64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if lo.Contains(r.Held, deliveryID) {
		return false, nil
	}
	d, ok := lo.Find(r.Deliveries, func(d *event.Delivery) bool { return d.ID == deliveryID })
	return ok && d.Status == event.DeliveryPending, nil
}

func (r *Events) MarkSent(_ context.Context, deliveryID uint64, messageID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.Deliveries {
		if d.ID == deliveryID {
			d.Status = event.DeliverySent
			d.MessageID = messageID
			d.DeliveredAt = &at
			d.Attempts++
		}
	}
	return nil
}

func (r *Events) MarkFailed(_ context.Context, deliveryID uint64, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.FailMarkFailed != nil {
		return r.FailMarkFailed
	}
	for _, d := range r.Deliveries {
		if d.ID == deliveryID {
			d.Attempts++
			d.LastError = reason
		}
	}
	return nil
}

// ByType 指定类型的事件
func (r *Events) ByType(t event.Type) []*event.Event {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return lo.Filter(r.Events, func(e *event.Event, _ int) bool { return e.Type == t })
}

type Periods struct {
	s       *Store
	Items   []*period.Period
	Creates int
	// RaceOnCreate 模拟并发插入：先写入一行再返回 ErrDuplicate。
	// 这一行对 Find 不可见，与 REPEATABLE READ 下的旧快照一致，只有 FindLatest 能读到
	RaceOnCreate bool
	racedID      uint64
}

var _ period.Repo = (*Periods)(nil)

func (r *Periods) Find(_ context.Context, kind period.Kind, start, end time.Time) (*period.Period, error) {
	return r.find(kind, start, end, false)
}

func (r *Periods) FindLatest(_ context.Context, kind period.Kind, start, end time.Time) (*period.Period, error) {
	return r.find(kind, start, end, true)
}

func (r *Periods) find(kind period.Kind, start, end time.Time, latest bool) (*period.Period, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := lo.Find(r.Items, func(p *period.Period) bool {
		if !latest && r.racedID != 0 && p.ID == r.racedID {
			return false
		}
		return p.Kind == kind && p.Start.Equal(start) && p.End.Equal(end)
	})
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *Periods) Create(_ context.Context, p *period.Period) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.Creates++
	if r.RaceOnCreate {
		r.RaceOnCreate = false
		winner := *p
		winner.ID = uint64(len(r.Items) + 1)
		r.Items = append(r.Items, &winner)
		r.racedID = winner.ID
		return errs.ErrDuplicate
	}
	for _, x := range r.Items {
		if x.Kind == p.Kind && x.Start.Equal(p.Start) && x.End.Equal(p.End) {
			return errs.ErrDuplicate
		}
	}
	p.ID = uint64(len(r.Items) + 1)
	cp := *p
	r.Items = append(r.Items, &cp)
	return nil
}

func (r *Periods) GetByID(_ context.Context, id uint64) (*period.Period, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := lo.Find(r.Items, func(p *period.Period) bool { return p.ID == id })
	if !ok {
		return nil, nil
	}
	return p, nil
}

type Recurring struct {
	s         *Store
	seq       uint64
	templates map[uint64]*recurring.Template
	Runs      []*recurring.Run
	Items     []*recurring.RunItem
	// FailItems 让明细写入失败
	FailItems error
}

var _ recurring.Repo = (*Recurring)(nil)

func (r *Recurring) CreateTemplate(_ context.Context, tpl *recurring.Template) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.seq++
	tpl.ID = r.seq
	cp := *tpl
	r.templates[tpl.ID] = &cp
	return nil
}

// PutTemplate 直接写入，跳过校验
func (r *Recurring) PutTemplate(tpl *recurring.Template) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if tpl.ID == 0 {
		r.seq++
		tpl.ID = r.seq
	}
	r.templates[tpl.ID] = tpl
}

func (r *Recurring) GetTemplate(_ context.Context, id uint64) (*recurring.Template, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tpl, ok := r.templates[id]
	if !ok {
		return nil, nil
	}
	cp := *tpl
	return &cp, nil
}

func (r *Recurring) ListTemplates(_ context.Context, filter recurring.TemplateFilter) ([]*recurring.Template, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*recurring.Template
	for _, tpl := range r.templates {
		if filter.ActiveOnly && !tpl.Active {
			continue
		}
		cp := *tpl
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *recurring.Template) int { return int(a.ID) - int(b.ID) })
	return out, nil
}

func (r *Recurring) InsertRun(_ context.Context, run *recurring.Run) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *run
	r.Runs = append(r.Runs, &cp)
	return nil
}

func (r *Recurring) InsertItem(_ context.Context, item *recurring.RunItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.FailItems != nil {
		return r.FailItems
	}
	item.ID = uint64(len(r.Items) + 1)
	cp := *item
	r.Items = append(r.Items, &cp)
	return nil
}

func (r *Recurring) ListItems(_ context.Context, runID uint64) ([]*recurring.RunItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return lo.Filter(r.Items, func(i *recurring.RunItem, _ int) bool { return i.RunID == runID }), nil
}

func (r *Recurring) LatestCreated(_ context.Context, templateID, periodID uint64) (*recurring.RunItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.Items) - 1; i >= 0; i-- {
		it := r.Items[i]
		if it.TemplateID == templateID && it.PeriodID != nil && *it.PeriodID == periodID && it.Outcome == recurring.OutcomeCreated {
			cp := *it
			return &cp, nil
		}
	}
	return nil, nil
}

type Statuses struct {
	s       *Store
	Entries []status.Entry
}

var _ status.Repo = (*Statuses)(nil)

func (r *Statuses) List(context.Context) ([]status.Entry, error) {
	return r.Entries, nil
}

func (r *Statuses) Seed(_ context.Context, entries []status.Entry) error {
	for _, e := range entries {
		if !lo.ContainsBy(r.Entries, func(x status.Entry) bool { return x.Code == e.Code }) {
			r.Entries = append(r.Entries, e)
		}
	}
	return nil
}

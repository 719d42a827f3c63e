// Package products renders the product catalog: paged listing, search,
// and create/edit/delete forms.
package products

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stock-deck/stockdeck/internal/api"
	"github.com/stock-deck/stockdeck/internal/domain/validation"
	"github.com/stock-deck/stockdeck/internal/tui/theme"
)

type mode int

const (
	modeList mode = iota
	modeSearch
	modeForm
	modeConfirmDelete
)

const (
	formName = iota
	formCategory
	formPrice
	formStock
	formFieldCount
)

type loadedMsg struct{ page *api.Page[api.Product] }
type savedMsg struct {
	product *api.Product
	created bool
}
type deletedMsg struct{ id string }
type failMsg struct{ err error }

// Model is the products view.
type Model struct {
	client    *api.Client
	validator *validation.Validator

	table  table.Model
	search textinput.Model

	form      [formFieldCount]textinput.Model
	formFocus int
	formErrs  map[string]string
	editingID string

	page    *api.Page[api.Product]
	query   api.ProductQuery
	mode    mode
	errText string
	notice  string
	loading bool
}

// New creates the products view.
func New(client *api.Client, validator *validation.Validator) Model {
	search := textinput.New()
	search.Placeholder = "search products"

	columns := []table.Column{
		{Title: "NAME", Width: 28},
		{Title: "CATEGORY", Width: 16},
		{Title: "PRICE", Width: 10},
		{Title: "STOCK", Width: 6},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	var form [formFieldCount]textinput.Model
	for i, placeholder := range []string{"name", "category", "price", "stock"} {
		in := textinput.New()
		in.Placeholder = placeholder
		form[i] = in
	}

	return Model{
		client:    client,
		validator: validator,
		table:     t,
		search:    search,
		form:      form,
		query:     api.ProductQuery{Page: 1, PageSize: 20},
	}
}

// Capturing reports whether the view is consuming raw text input
// (search or form mode). The shell suspends global bindings then.
func (m Model) Capturing() bool {
	return m.mode == modeSearch || m.mode == modeForm
}

// Load fetches the current page.
func (m *Model) Load() tea.Cmd {
	m.loading = true
	m.errText = ""
	client := m.client
	query := m.query
	return func() tea.Msg {
		page, err := client.Products(context.Background(), query)
		if err != nil {
			return failMsg{err: err}
		}
		return loadedMsg{page: page}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.loading = false
		m.page = msg.page
		m.table.SetRows(rowsFor(msg.page.Items))
		if cursor := m.table.Cursor(); cursor >= len(msg.page.Items) {
			m.table.SetCursor(0)
		}
		return m, nil

	case savedMsg:
		m.mode = modeList
		if msg.created {
			m.notice = fmt.Sprintf("created %s", msg.product.Name)
		} else {
			m.notice = fmt.Sprintf("updated %s", msg.product.Name)
		}
		return m, m.Load()

	case deletedMsg:
		m.mode = modeList
		m.notice = "product deleted"
		return m, m.Load()

	case failMsg:
		m.loading = false
		m.errText = msg.err.Error()
		if m.mode == modeConfirmDelete {
			m.mode = modeList
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeForm:
			return m.updateForm(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (Model, tea.Cmd) {
	m.notice = ""
	switch msg.String() {
	case "/":
		m.mode = modeSearch
		m.search.Focus()
		return m, nil
	case "n":
		if m.page != nil && m.query.Page < m.page.Pages {
			m.query.Page++
			return m, m.Load()
		}
		return m, nil
	case "p":
		if m.query.Page > 1 {
			m.query.Page--
			return m, m.Load()
		}
		return m, nil
	case "r":
		return m, m.Load()
	case "c":
		m.openForm(nil)
		return m, nil
	case "e":
		if p := m.selected(); p != nil {
			m.openForm(p)
		}
		return m, nil
	case "x":
		if m.selected() != nil {
			m.mode = modeConfirmDelete
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateSearch(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.mode = modeList
		m.search.Blur()
		m.query.Q = m.search.Value()
		m.query.Page = 1
		return m, m.Load()
	case "esc":
		m.mode = modeList
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "y":
		p := m.selected()
		if p == nil {
			m.mode = modeList
			return m, nil
		}
		client := m.client
		id := p.ID
		return m, func() tea.Msg {
			if err := client.DeleteProduct(context.Background(), id); err != nil {
				return failMsg{err: err}
			}
			return deletedMsg{id: id}
		}
	case "n", "esc":
		m.mode = modeList
		return m, nil
	}
	return m, nil
}

func (m *Model) openForm(p *api.Product) {
	m.mode = modeForm
	m.formErrs = nil
	m.editingID = ""
	values := [formFieldCount]string{}
	if p != nil {
		m.editingID = p.ID
		values = [formFieldCount]string{
			p.Name, p.Category,
			strconv.FormatFloat(float64(p.Price), 'f', 2, 64),
			strconv.Itoa(p.Stock),
		}
	}
	for i := range m.form {
		m.form[i].SetValue(values[i])
		m.form[i].Blur()
	}
	m.formFocus = formName
	m.form[formName].Focus()
}

func (m Model) updateForm(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		return m, nil
	case "tab", "down":
		m.setFormFocus((m.formFocus + 1) % formFieldCount)
		return m, nil
	case "shift+tab", "up":
		m.setFormFocus((m.formFocus - 1 + formFieldCount) % formFieldCount)
		return m, nil
	case "enter":
		return m.submitForm()
	}
	var cmd tea.Cmd
	m.form[m.formFocus], cmd = m.form[m.formFocus].Update(msg)
	return m, cmd
}

func (m *Model) setFormFocus(i int) {
	m.formFocus = i
	for j := range m.form {
		if j == i {
			m.form[j].Focus()
		} else {
			m.form[j].Blur()
		}
	}
}

func (m Model) submitForm() (Model, tea.Cmd) {
	m.formErrs = map[string]string{}

	price := 0.0
	if v := m.form[formPrice].Value(); v != "" {
		var err error
		price, err = strconv.ParseFloat(v, 64)
		if err != nil {
			m.formErrs["price"] = "price must be a number"
		}
	}
	stock := 0
	if v := m.form[formStock].Value(); v != "" {
		var err error
		stock, err = strconv.Atoi(v)
		if err != nil {
			m.formErrs["stock"] = "stock must be a whole number"
		}
	}

	form := validation.ProductForm{
		Name:     m.form[formName].Value(),
		Category: m.form[formCategory].Value(),
		Price:    price,
		Stock:    stock,
	}
	if err := m.validator.Validate(form); err != nil {
		var formErrors validation.FormErrors
		if errors.As(err, &formErrors) {
			for field, msg := range formErrors.ByField() {
				if _, taken := m.formErrs[field]; !taken {
					m.formErrs[field] = msg
				}
			}
		} else {
			m.errText = err.Error()
		}
	}
	if len(m.formErrs) > 0 {
		return m, nil
	}
	m.formErrs = nil

	input := api.ProductInput{
		Name:     form.Name,
		Category: form.Category,
		Price:    form.Price,
		Stock:    form.Stock,
	}
	client := m.client
	editingID := m.editingID
	return m, func() tea.Msg {
		ctx := context.Background()
		if editingID != "" {
			p, err := client.UpdateProduct(ctx, editingID, input)
			if err != nil {
				return failMsg{err: err}
			}
			return savedMsg{product: p}
		}
		p, err := client.CreateProduct(ctx, input)
		if err != nil {
			return failMsg{err: err}
		}
		return savedMsg{product: p, created: true}
	}
}

func (m Model) selected() *api.Product {
	if m.page == nil || len(m.page.Items) == 0 {
		return nil
	}
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.page.Items) {
		return nil
	}
	return &m.page.Items[cursor]
}

func rowsFor(items []api.Product) []table.Row {
	rows := make([]table.Row, len(items))
	for i, p := range items {
		rows[i] = table.Row{
			p.Name,
			p.Category,
			fmt.Sprintf("%.2f", float64(p.Price)),
			strconv.Itoa(p.Stock),
		}
	}
	return rows
}

// View renders the view for the current mode.
func (m Model) View() string {
	switch m.mode {
	case modeForm:
		return m.viewForm()
	case modeConfirmDelete:
		p := m.selected()
		name := ""
		if p != nil {
			name = p.Name
		}
		return lipgloss.JoinVertical(lipgloss.Left,
			theme.StyleHeader.Render("Delete product"),
			"",
			fmt.Sprintf("  delete %q? (y/n)", name),
		)
	default:
		return m.viewList()
	}
}

func (m Model) viewList() string {
	lines := []string{theme.StyleHeader.Render("Products")}

	if m.mode == modeSearch {
		lines = append(lines, "  "+m.search.View())
	} else if m.query.Q != "" {
		lines = append(lines, theme.StyleDimmed.Render(fmt.Sprintf("  filter: %q", m.query.Q)))
	}

	switch {
	case m.loading:
		lines = append(lines, theme.StyleDimmed.Render("  loading..."))
	case m.errText != "":
		lines = append(lines, theme.StyleError.Render("  "+m.errText))
	case m.page == nil || len(m.page.Items) == 0:
		lines = append(lines, theme.StyleDimmed.Render("  no products"))
	default:
		lines = append(lines, m.table.View())
		lines = append(lines, theme.StyleDimmed.Render(
			fmt.Sprintf("  page %d/%d, %d total", m.page.Page, m.page.Pages, m.page.Total)))
	}

	if m.notice != "" {
		lines = append(lines, "  "+m.notice)
	}
	lines = append(lines, "", theme.StyleDimmed.Render(
		"  j/k:move  /:search  n/p:page  c:create  e:edit  x:delete  r:reload"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) viewForm() string {
	title := "New product"
	if m.editingID != "" {
		title = "Edit product"
	}
	lines := []string{theme.StyleHeader.Render(title), ""}

	for i, field := range []string{"name", "category", "price", "stock"} {
		lines = append(lines, "  "+m.form[i].View())
		if msg, ok := m.formErrs[field]; ok {
			lines = append(lines, "  "+theme.StyleError.Render(msg))
		}
	}

	if m.errText != "" {
		lines = append(lines, "", "  "+theme.StyleError.Render(m.errText))
	}
	lines = append(lines, "", theme.StyleDimmed.Render("  enter:save  tab:next field  esc:cancel"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

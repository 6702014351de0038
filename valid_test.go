package valid

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSchema = `{
	"type": "object",
	"properties": {
		"name": {
			"type": "string",
			"minLength": 2,
			"maxLength": 50
		},
		"email": {
			"type": "string",
			"format": "email"
		},
		"age": {
			"type": "integer",
			"minimum": 0,
			"maximum": 120
		},
		"address": {
			"type": "object",
			"properties": {
				"street": {"type": "string"},
				"city": {"type": "string"},
				"zipCode": {"type": "string", "pattern": "^[0-9]{5}-?[0-9]{3}$"}
			},
			"required": ["street", "city"]
		}
	},
	"required": ["name", "email"]
}`

func TestNewFromString(t *testing.T) {
	tests := []struct {
		name        string
		schema      string
		expectError bool
	}{
		{
			name:        "valid schema",
			schema:      testSchema,
			expectError: false,
		},
		{
			name:        "empty schema",
			schema:      "",
			expectError: true,
		},
		{
			name:        "invalid JSON",
			schema:      `{"type": "object"`,
			expectError: true,
		},
		{
			name:        "whitespace only",
			schema:      "   ",
			expectError: true,
		},
		{
			name:        "required is not an array",
			schema:      `{"type": "object", "required": "name"}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator, err := NewFromString(tt.schema)
			if tt.expectError {
				if err == nil {
					t.Error("esperava erro, mas não recebeu nenhum")
				}
				if !IsSchemaDefinitionError(err) {
					t.Errorf("esperava *SchemaDefinitionError, recebeu %T", err)
				}
				if validator != nil {
					t.Error("esperava validator nil quando há erro")
				}
			} else {
				if err != nil {
					t.Errorf("não esperava erro, mas recebeu: %v", err)
				}
				if validator == nil {
					t.Error("esperava validator válido")
				}
			}
		})
	}
}

func TestNewFromBytes(t *testing.T) {
	tests := []struct {
		name        string
		schema      []byte
		expectError bool
	}{
		{
			name:        "valid schema bytes",
			schema:      []byte(testSchema),
			expectError: false,
		},
		{
			name:        "empty bytes",
			schema:      []byte{},
			expectError: true,
		},
		{
			name:        "nil bytes",
			schema:      nil,
			expectError: true,
		},
		{
			name:        "invalid JSON bytes",
			schema:      []byte(`{"type": "object"`),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator, err := NewFromBytes(tt.schema)
			if tt.expectError {
				if err == nil {
					t.Error("esperava erro, mas não recebeu nenhum")
				}
			} else {
				if err != nil {
					t.Errorf("não esperava erro, mas recebeu: %v", err)
				}
				if validator == nil {
					t.Error("esperava validator válido")
				}
			}
		})
	}
}

func TestNew(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "user.json")
	if err := os.WriteFile(jsonPath, []byte(testSchema), 0o600); err != nil {
		t.Fatalf("erro ao escrever arquivo temporário: %v", err)
	}

	validator, err := New(jsonPath)
	if err != nil {
		t.Errorf("não esperava erro, mas recebeu: %v", err)
	}
	if validator == nil {
		t.Error("esperava validator válido")
	}

	yamlPath := filepath.Join(dir, "user.yaml")
	yamlSchema := "type: object\nrequired: [name]\nproperties:\n  name:\n    type: string\n"
	if err := os.WriteFile(yamlPath, []byte(yamlSchema), 0o600); err != nil {
		t.Fatalf("erro ao escrever arquivo temporário: %v", err)
	}

	validator, err = New(yamlPath)
	if err != nil {
		t.Fatalf("não esperava erro para schema YAML, mas recebeu: %v", err)
	}
	if _, err := validator.ValidateString(`{"name": "Ana"}`); err != nil {
		t.Errorf("esperava dados válidos, recebeu: %v", err)
	}

	// Teste com arquivo inexistente
	_, err = New(filepath.Join(dir, "arquivo-inexistente.json"))
	if err == nil {
		t.Error("esperava erro para arquivo inexistente")
	}
}

func TestValidateString(t *testing.T) {
	validator, err := NewFromString(testSchema)
	if err != nil {
		t.Fatalf("erro ao criar validator: %v", err)
	}

	tests := []struct {
		name            string
		jsonData        string
		expectValid     bool
		expectParseErr  bool
		firstConstraint string
	}{
		{
			name: "valid data",
			jsonData: `{
				"name": "João Silva",
				"email": "joao@exemplo.com",
				"age": 30,
				"address": {
					"street": "Rua das Flores, 123",
					"city": "São Paulo",
					"zipCode": "01234-567"
				}
			}`,
			expectValid: true,
		},
		{
			name: "minimal valid data",
			jsonData: `{
				"name": "Ana",
				"email": "ana@test.com"
			}`,
			expectValid: true,
		},
		{
			name: "missing required field",
			jsonData: `{
				"name": "João Silva"
			}`,
			firstConstraint: "required",
		},
		{
			name: "invalid email format",
			jsonData: `{
				"name": "João Silva",
				"email": "email-inválido"
			}`,
			firstConstraint: "format",
		},
		{
			name: "name too short",
			jsonData: `{
				"name": "J",
				"email": "j@example.com"
			}`,
			firstConstraint: "string_gte",
		},
		{
			name: "negative age",
			jsonData: `{
				"name": "João Silva",
				"email": "joao@exemplo.com",
				"age": -5
			}`,
			firstConstraint: "number_gte",
		},
		{
			name: "invalid zipcode format",
			jsonData: `{
				"name": "João Silva",
				"email": "joao@exemplo.com",
				"address": {
					"street": "Rua das Flores, 123",
					"city": "São Paulo",
					"zipCode": "123"
				}
			}`,
			firstConstraint: "pattern",
		},
		{
			name:           "invalid JSON",
			jsonData:       `{"name": "João"`,
			expectParseErr: true,
		},
		{
			name:           "empty string",
			jsonData:       "",
			expectParseErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			document, err := validator.ValidateString(tt.jsonData)

			if tt.expectParseErr {
				if !IsPayloadParseError(err) {
					t.Errorf("esperava *PayloadParseError, recebeu: %v", err)
				}
				return
			}

			if tt.expectValid {
				if err != nil {
					t.Errorf("não esperava erro, mas recebeu: %v", err)
				}
				if document == nil {
					t.Error("documento não deveria ser nil")
				}
				return
			}

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("esperava *ValidationError, recebeu: %v", err)
			}
			if len(ve.Violations) == 0 {
				t.Fatal("dados inválidos deveriam ter erros detalhados")
			}
			if got := ve.Violations[0].Constraint; got != tt.firstConstraint {
				t.Errorf("esperava constraint %q, recebeu %q (%+v)", tt.firstConstraint, got, ve.Violations)
			}
		})
	}
}

func TestValidateBytes(t *testing.T) {
	validator, err := NewFromString(testSchema)
	if err != nil {
		t.Fatalf("erro ao criar validator: %v", err)
	}

	validJSON := []byte(`{"name": "Test", "email": "test@example.com"}`)
	if _, err := validator.ValidateBytes(validJSON); err != nil {
		t.Errorf("não esperava erro: %v", err)
	}

	// Teste com bytes vazios
	_, err = validator.ValidateBytes([]byte{})
	if !IsPayloadParseError(err) {
		t.Errorf("esperava *PayloadParseError para bytes vazios, recebeu: %v", err)
	}
}

func TestValidateInterface(t *testing.T) {
	validator, err := NewFromString(testSchema)
	if err != nil {
		t.Fatalf("erro ao criar validator: %v", err)
	}

	data := map[string]interface{}{
		"name":  "Test User",
		"email": "test@example.com",
		"age":   25,
	}

	if _, err := validator.ValidateInterface(data); err != nil {
		t.Errorf("esperava dados válidos, mas recebeu erros: %v", err)
	}

	type address struct {
		Street string `json:"street"`
	}
	type user struct {
		Name    string  `json:"name"`
		Email   string  `json:"email"`
		Address address `json:"address"`
	}

	// Teste com dados inválidos
	_, err = validator.ValidateInterface(user{Name: "T", Email: "invalid-email", Address: address{Street: "Rua A"}})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("esperava *ValidationError, recebeu: %v", err)
	}

	want := []string{"/address", "/email", "/name"}
	got := ve.Violations.Paths()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("esperava caminhos %v, recebeu %v", want, got)
	}

	// Valores que não são JSON
	if _, err := validator.ValidateInterface(map[string]interface{}{"ch": make(chan int)}); err == nil {
		t.Error("esperava erro para valor não serializável")
	}
}

func TestValidateRequest(t *testing.T) {
	validator, err := NewFromString(testSchema)
	if err != nil {
		t.Fatalf("erro ao criar validator: %v", err)
	}

	// Teste com requisição válida
	validJSON := `{"name": "Test User", "email": "test@example.com"}`
	req := httptest.NewRequest("POST", "/test", strings.NewReader(validJSON))
	req.Header.Set("Content-Type", "application/json")

	if _, err := validator.ValidateRequest(req); err != nil {
		t.Errorf("esperava dados válidos, mas recebeu erros: %v", err)
	}

	// Verifica se o body pode ser lido novamente
	body, err := io.ReadAll(req.Body)
	if err != nil {
		t.Errorf("erro ao ler body novamente: %v", err)
	}
	if string(body) != validJSON {
		t.Error("body da requisição foi modificado")
	}

	// Teste com requisição nil
	_, err = validator.ValidateRequest(nil)
	if err == nil {
		t.Error("esperava erro para requisição nil")
	}

	// Teste com body nil
	reqNilBody := &http.Request{}
	_, err = validator.ValidateRequest(reqNilBody)
	if !IsPayloadParseError(err) {
		t.Errorf("esperava *PayloadParseError para body nil, recebeu: %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	validator, err := NewFromString(testSchema)
	if err != nil {
		t.Fatalf("erro ao criar validator: %v", err)
	}

	handlerCalled := false
	handler := func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	}

	middleware := validator.Middleware(handler)

	// Teste com GET sem corpo (validado: nenhum método é pulado por padrão)
	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	handlerCalled = false
	middleware(w, req)

	if handlerCalled {
		t.Error("handler não deveria ter sido chamado para GET sem corpo")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("esperava status 400, recebeu %d", w.Code)
	}

	// Teste com POST válido
	validJSON := `{"name": "Test User", "email": "test@example.com"}`
	req = httptest.NewRequest("POST", "/test", strings.NewReader(validJSON))
	w = httptest.NewRecorder()

	handlerCalled = false
	middleware(w, req)

	if !handlerCalled {
		t.Error("handler deveria ter sido chamado para dados válidos")
	}
	if w.Code != http.StatusOK {
		t.Errorf("esperava status 200, recebeu %d", w.Code)
	}

	// Teste com POST inválido
	invalidJSON := `{"name": "T"}` // nome muito curto, email ausente
	req = httptest.NewRequest("POST", "/test", strings.NewReader(invalidJSON))
	w = httptest.NewRecorder()

	handlerCalled = false
	middleware(w, req)

	if handlerCalled {
		t.Error("handler não deveria ter sido chamado para dados inválidos")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("esperava status 400, recebeu %d", w.Code)
	}

	// Verifica se a resposta de erro está no formato correto
	var errorResponse struct {
		Error   string `json:"error"`
		Details []struct {
			Path       []interface{} `json:"path"`
			Constraint string        `json:"constraint"`
		} `json:"details"`
	}
	err = json.NewDecoder(w.Body).Decode(&errorResponse)
	if err != nil {
		t.Errorf("erro ao decodificar resposta de erro: %v", err)
	}
	if errorResponse.Error == "" {
		t.Error("resposta de erro deveria ter mensagem")
	}
	if len(errorResponse.Details) != 2 {
		t.Fatalf("resposta de erro deveria ter 2 detalhes, recebeu %+v", errorResponse.Details)
	}
	// Ordenado por caminho: raiz (email ausente) antes de /name
	if len(errorResponse.Details[0].Path) != 0 || errorResponse.Details[0].Constraint != "required" {
		t.Errorf("primeiro detalhe inesperado: %+v", errorResponse.Details[0])
	}
}

func TestMiddlewareWithConfig(t *testing.T) {
	validator, err := NewFromString(testSchema)
	if err != nil {
		t.Fatalf("erro ao criar validator: %v", err)
	}

	handlerCalled := false
	handler := func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	}

	customErrorHandlerCalled := false
	config := MiddlewareConfig{
		SkipMethods: []string{"GET", "POST"}, // Pula também POST
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			customErrorHandlerCalled = true
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("esperava *ValidationError, recebeu %T", err)
			}
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"errors":  ve.Violations,
			})
		},
	}

	middleware := validator.MiddlewareWithConfig(config, handler)

	// Teste POST (deve ser pulado devido à configuração)
	req := httptest.NewRequest("POST", "/test", strings.NewReader(`{"invalid": "data"}`))
	w := httptest.NewRecorder()

	handlerCalled = false
	middleware(w, req)

	if !handlerCalled {
		t.Error("handler deveria ter sido chamado para POST (método pulado)")
	}

	// Teste PUT (deve validar e usar error handler customizado)
	req = httptest.NewRequest("PUT", "/test", strings.NewReader(`{"name": "T"}`))
	w = httptest.NewRecorder()

	handlerCalled = false
	customErrorHandlerCalled = false
	middleware(w, req)

	if handlerCalled {
		t.Error("handler não deveria ter sido chamado para dados inválidos")
	}
	if !customErrorHandlerCalled {
		t.Error("error handler customizado deveria ter sido chamado")
	}
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("esperava status 422, recebeu %d", w.Code)
	}
}

func TestCheckData(t *testing.T) {
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"a"},
	}

	if err := CheckData(schema, map[string]interface{}{"a": "b"}); err != nil {
		t.Errorf("não esperava erro: %v", err)
	}

	err := CheckData(schema, map[string]interface{}{})
	if !IsValidationError(err) {
		t.Errorf("esperava *ValidationError, recebeu: %v", err)
	}

	err = CheckData(map[string]interface{}{"type": 12}, map[string]interface{}{})
	if !IsSchemaDefinitionError(err) {
		t.Errorf("esperava *SchemaDefinitionError, recebeu: %v", err)
	}
}

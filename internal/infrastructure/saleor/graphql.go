package saleor

// GraphQL documents sent to the Saleor API. Only the fields the app reads
// are selected.

const accountRegisterMutation = `
  mutation AccountRegisterInput($input: AccountRegisterInput!) {
    accountRegister(input: $input) {
      requiresConfirmation
      errors {
        field
        message
      }
      user {
        id
        isActive
        isConfirmed
      }
    }
  }
`

const userQuery = `
  query User($email: String) {
    user(email: $email) {
      id
      email
    }
  }
`

const tokenCreateMutation = `
  mutation TokenCreate($email: String!, $password: String!) {
    tokenCreate(email: $email, password: $password) {
      token
      refreshToken
      csrfToken
      user {
        id
        email
      }
      errors {
        field
        message
        code
      }
    }
  }
`

const tokenVerifyMutation = `
  mutation TokenVerify($token: String!) {
    tokenVerify(token: $token) {
      payload
    }
  }
`

const customersQuery = `
  query ListCustomers($first: Int, $filter: CustomerFilterInput) {
    customers(first: $first, filter: $filter) {
      edges {
        node {
          id
          email
          firstName
          lastName
        }
      }
    }
  }
`

const transactionQuery = `
  query Transaction($transactionId: ID!) {
    transaction(id: $transactionId) {
      checkout {
        id
      }
      order {
        id
      }
      chargedAmount {
        amount
        currency
      }
      createdAt
    }
  }
`

const transactionProcessMutation = `
  mutation transactionProcess($data: JSON!, $id: ID!) {
    transactionProcess(data: $data, id: $id) {
      transaction {
        id
        chargedAmount {
          amount
          currency
        }
        createdAt
      }
      transactionEvent {
        type
        pspReference
        message
        id
      }
      errors {
        field
        message
        code
      }
    }
  }
`

const checkoutCompleteMutation = `
  mutation checkoutComplete($id: ID!, $metadata: [MetadataInput!]) {
    checkoutComplete(id: $id, metadata: $metadata) {
      order {
        id
      }
      errors {
        field
        message
        code
      }
    }
  }
`

const appMetadataQuery = `
  query FetchAppMetadata {
    app {
      id
      privateMetadata {
        key
        value
      }
    }
  }
`

const updatePrivateMetadataMutation = `
  mutation UpdateAppMetadata($id: ID!, $input: [MetadataInput!]!) {
    updatePrivateMetadata(id: $id, input: $input) {
      errors {
        field
        message
      }
    }
  }
`

const appIDQuery = `
  query FetchAppID {
    app {
      id
    }
  }
`
